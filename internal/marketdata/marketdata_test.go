package marketdata

import (
	"testing"
	"time"
)

func TestBarValidate_AcceptsAnOrderedBar(t *testing.T) {
	b := Bar{Timestamp: time.Now(), Open: 10, High: 12, Low: 9, Close: 11, Volume: 1000}
	if err := b.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBarValidate_RejectsLowAboveOpenClose(t *testing.T) {
	b := Bar{Timestamp: time.Now(), Open: 10, High: 12, Low: 10.5, Close: 11, Volume: 1000}
	if err := b.Validate(); err == nil {
		t.Fatal("expected an error for low above min(open,close)")
	}
}

func TestBarValidate_RejectsHighBelowOpenClose(t *testing.T) {
	b := Bar{Timestamp: time.Now(), Open: 10, High: 10.5, Low: 9, Close: 11, Volume: 1000}
	if err := b.Validate(); err == nil {
		t.Fatal("expected an error for high below max(open,close)")
	}
}

func TestBarValidate_RejectsNegativeVolume(t *testing.T) {
	b := Bar{Timestamp: time.Now(), Open: 10, High: 12, Low: 9, Close: 11, Volume: -1}
	if err := b.Validate(); err == nil {
		t.Fatal("expected an error for negative volume")
	}
}

func TestQuoteValid(t *testing.T) {
	cases := []struct {
		name string
		q    Quote
		want bool
	}{
		{"normal", Quote{Bid: 10, Ask: 10.05}, true},
		{"crossed", Quote{Bid: 10.05, Ask: 10}, false},
		{"zero_bid", Quote{Bid: 0, Ask: 10}, false},
		{"zero_ask", Quote{Bid: 10, Ask: 0}, false},
		{"locked", Quote{Bid: 10, Ask: 10}, true},
	}
	for _, c := range cases {
		if got := c.q.Valid(); got != c.want {
			t.Errorf("%s: Valid() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestQuoteMidAndSpreadPct(t *testing.T) {
	q := Quote{Bid: 100, Ask: 100.5}
	if mid := q.Mid(); mid != 100.25 {
		t.Errorf("Mid() = %v, want 100.25", mid)
	}
	spread := q.SpreadPct()
	want := 0.5 / 100.25 * 100
	if spread < want-1e-9 || spread > want+1e-9 {
		t.Errorf("SpreadPct() = %v, want %v", spread, want)
	}
}

func TestQuoteSpreadPct_ZeroMidIsZero(t *testing.T) {
	q := Quote{Bid: 0, Ask: 0}
	if got := q.SpreadPct(); got != 0 {
		t.Errorf("SpreadPct() = %v, want 0 for a zero mid", got)
	}
}
