package reporting

import (
	"strings"
	"testing"
)

func TestFormatter_Money(t *testing.T) {
	f := New()
	got := f.Money(101000)
	if !strings.Contains(got, "101,000") {
		t.Errorf("Money(101000) = %q, want grouped thousands", got)
	}
}

func TestFormatter_Percent(t *testing.T) {
	f := New()
	if got := f.Percent(-8); got != "-8.00%" {
		t.Errorf("Percent(-8) = %q, want -8.00%%", got)
	}
	if got := f.Percent(1.5); got != "+1.50%" {
		t.Errorf("Percent(1.5) = %q, want +1.50%%", got)
	}
}

func TestFormatter_Shares(t *testing.T) {
	f := New()
	if got := f.Shares(1250); got != "1,250" {
		t.Errorf("Shares(1250) = %q, want 1,250", got)
	}
}

func TestFormatter_VetoAndFillLines(t *testing.T) {
	f := New()
	veto := f.VetoLine("AAPL", "quality", "spread too wide")
	if !strings.Contains(veto, "AAPL") || !strings.Contains(veto, "quality") {
		t.Errorf("VetoLine missing expected fields: %q", veto)
	}
	fill := f.FillLine("AAPL", "buy", 100, 150.25, 3.2)
	if !strings.Contains(fill, "AAPL") || !strings.Contains(fill, "150.25") {
		t.Errorf("FillLine missing expected fields: %q", fill)
	}
}
