// Package brokerio wraps broker I/O with bounded retry on transient
// connection errors, per SPEC_FULL.md §5. Adapted from the teacher's
// internal/risk/circuit_breaker.go — the failure-tracking shape is kept,
// but repurposed here from a trade-rejection breaker into a transient-retry
// helper for broker calls; internal/execution.Executor's StrategyBlocked
// latch is the unrelated concept that replaces the teacher's original use.
package brokerio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// TransientError marks a broker error as a candidate for retry. Adapters
// should wrap connection-reset/remote-disconnected/protocol-error classes
// with this; anything else propagates immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// MarkTransient wraps err as a TransientError.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is a TransientError, or one of the
// well-known stdlib connection-error classes (reset, disconnected, EOF,
// timeout) that the broker adapter forgot to wrap.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

// Config controls retry attempts/delay for broker I/O.
type Config struct {
	APIRetryTimes     int
	APIRetryDelaySec  int
}

func (c Config) withDefaults() Config {
	if c.APIRetryTimes == 0 {
		c.APIRetryTimes = 3
	}
	if c.APIRetryDelaySec == 0 {
		c.APIRetryDelaySec = 2
	}
	return c
}

// Retrier runs broker calls with bounded retry on transient errors.
type Retrier struct {
	cfg    Config
	log    zerolog.Logger
	sleep  func(time.Duration)
}

// New builds a Retrier, applying defaults for zero Config fields.
func New(cfg Config, logger zerolog.Logger) *Retrier {
	return &Retrier{
		cfg:   cfg.withDefaults(),
		log:   logger.With().Str("component", "brokerio").Logger(),
		sleep: time.Sleep,
	}
}

// Do runs fn, retrying up to APIRetryTimes on transient errors with
// APIRetryDelaySec between attempts. Non-transient errors propagate
// immediately without retry. Context cancellation aborts the retry loop.
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.APIRetryTimes; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err
		r.log.Warn().Str("op", op).Int("attempt", attempt).Err(err).Msg("transient broker error, retrying")
		if attempt == r.cfg.APIRetryTimes {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		r.sleep(time.Duration(r.cfg.APIRetryDelaySec) * time.Second)
	}
	return fmt.Errorf("brokerio: %s failed after %d attempts: %w", op, r.cfg.APIRetryTimes, lastErr)
}
