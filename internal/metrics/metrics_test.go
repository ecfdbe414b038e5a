package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	GateVetos.WithLabelValues("quality", "spread too wide").Inc()
	EquityGauge.Set(101000)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "eqtrader_gates_vetoes_total") {
		t.Errorf("expected gate veto metric in output, got:\n%s", body)
	}
	if !strings.Contains(body, "eqtrader_portfolio_equity") {
		t.Errorf("expected equity gauge metric in output, got:\n%s", body)
	}
}
