package quality

import (
	"strings"
	"testing"
)

func f64(v float64) *float64 { return &v }

func TestCheck_SpreadVeto(t *testing.T) {
	g := New(Config{MaxSpreadPct: 0.10})
	r := g.Check(f64(0.20), nil, nil)
	if r.Ok {
		t.Fatal("expected spread veto")
	}
	if !strings.HasPrefix(r.Reason, "spread") {
		t.Errorf("expected reason to start with 'spread', got %q", r.Reason)
	}
}

func TestCheck_VolumeATRRatioVeto(t *testing.T) {
	g := New(Config{MinVolumeATRRatio: 1.0})
	r := g.Check(nil, f64(0.5), nil)
	if r.Ok {
		t.Fatal("expected volume/ATR veto")
	}
}

func TestCheck_NewsSpikeVeto(t *testing.T) {
	g := New(Config{BlockOnNewsSpike: true, NewsVolatilitySpikeATRMultiple: 2.0})
	r := g.Check(nil, nil, f64(2.5))
	if r.Ok || !r.VolatilitySpike {
		t.Fatal("expected news-spike veto")
	}
}

func TestCheck_NewsSpikeDisabledPasses(t *testing.T) {
	g := New(Config{BlockOnNewsSpike: false, NewsVolatilitySpikeATRMultiple: 2.0})
	r := g.Check(nil, nil, f64(5.0))
	if !r.Ok {
		t.Fatal("expected pass when news-spike blocking disabled")
	}
}

func TestCheck_UnknownMetricsPass(t *testing.T) {
	g := New(Config{})
	r := g.Check(nil, nil, nil)
	if !r.Ok {
		t.Fatal("expected pass when no metrics supplied")
	}
}
