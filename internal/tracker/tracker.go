// Package tracker implements the durable entry-price/time/stop ledger for
// open positions (C11), grounded on original_source/src/position_tracker.py
// and run_alpaca_loop.py's reconciliation-on-restart logic. Whole-file JSON
// read/write is acceptable for small universes per SPEC_FULL.md §9.
package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Position is the durable TrackedPosition value.
type Position struct {
	Qty        int       `json:"qty"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
	StopPct    float64   `json:"stop_pct"`
}

// Tracker is a single-writer, whole-file JSON store keyed by uppercase
// symbol.
type Tracker struct {
	path string
}

// New points a Tracker at path (typically data/positions_tracked.json);
// the file need not exist yet.
func New(path string) *Tracker {
	return &Tracker{path: path}
}

// Load reads the full position map from disk. A missing file is treated as
// an empty map, not an error.
func (t *Tracker) Load() (map[string]Position, error) {
	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return map[string]Position{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tracker: read %s: %w", t.path, err)
	}
	positions := map[string]Position{}
	if len(data) == 0 {
		return positions, nil
	}
	if err := json.Unmarshal(data, &positions); err != nil {
		return nil, fmt.Errorf("tracker: parse %s: %w", t.path, err)
	}
	return positions, nil
}

// save writes the full map back to disk, creating parent directories as
// needed.
func (t *Tracker) save(positions map[string]Position) error {
	if dir := filepath.Dir(t.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("tracker: mkdir %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(positions, "", "  ")
	if err != nil {
		return fmt.Errorf("tracker: marshal: %w", err)
	}
	if err := os.WriteFile(t.path, data, 0o644); err != nil {
		return fmt.Errorf("tracker: write %s: %w", t.path, err)
	}
	return nil
}

// Add inserts or replaces the tracked position for symbol and persists.
func (t *Tracker) Add(symbol string, pos Position) error {
	positions, err := t.Load()
	if err != nil {
		return err
	}
	positions[strings.ToUpper(symbol)] = pos
	return t.save(positions)
}

// Remove deletes the tracked position for symbol (no-op if absent) and
// persists.
func (t *Tracker) Remove(symbol string) error {
	positions, err := t.Load()
	if err != nil {
		return err
	}
	delete(positions, strings.ToUpper(symbol))
	return t.save(positions)
}

// BarsHeld is max(0, floor((now-entry).Hours()/24)) for daily-bar
// strategies.
func BarsHeld(entry, now time.Time) int {
	d := now.Sub(entry)
	days := int(d.Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// BrokerPosition is the minimal shape Reconcile needs from the broker's
// position list.
type BrokerPosition struct {
	Symbol     string
	Qty        int
	CostBasis  float64
}

// Reconcile adopts any broker position not already present in the tracker,
// using entry_price = cost_basis/qty and the supplied default stop_pct, per
// SPEC_FULL.md §12. It returns the symbols that were newly adopted.
func (t *Tracker) Reconcile(brokerPositions []BrokerPosition, defaultStopPct float64, now time.Time) ([]string, error) {
	positions, err := t.Load()
	if err != nil {
		return nil, err
	}
	var adopted []string
	for _, bp := range brokerPositions {
		if bp.Qty <= 0 {
			continue
		}
		sym := strings.ToUpper(bp.Symbol)
		if _, exists := positions[sym]; exists {
			continue
		}
		positions[sym] = Position{
			Qty:        bp.Qty,
			EntryPrice: bp.CostBasis / float64(bp.Qty),
			EntryTime:  now,
			StopPct:    defaultStopPct,
		}
		adopted = append(adopted, sym)
	}
	if len(adopted) > 0 {
		if err := t.save(positions); err != nil {
			return nil, err
		}
	}
	return adopted, nil
}
