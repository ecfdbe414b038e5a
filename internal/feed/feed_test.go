package feed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rvora/eqtrader/internal/marketdata"
)

var testUpgrader = websocket.Upgrader{}

func noopLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// newTestServer starts an httptest server that upgrades to a websocket and
// immediately writes the given quote payloads.
func newTestServer(t *testing.T, payloads []wireQuote) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, p := range payloads {
			b, _ := json.Marshal(p)
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
		// Keep the connection open briefly so the client's readPump has
		// time to process before the server closes it.
		time.Sleep(100 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Run_PublishesQuotesIntoCache(t *testing.T) {
	now := time.Now().Unix()
	srv := newTestServer(t, []wireQuote{
		{Symbol: "AAPL", Bid: 150.00, Ask: 150.05, Ts: now},
		{Symbol: "MSFT", Bid: 300.10, Ask: 300.20, Ts: now},
	})
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	cache := NewQuoteCache()
	client := New(wsURL, cache, noopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = client.Run(ctx) // returns once the server closes the connection

	q, ok := cache.Get("AAPL")
	if !ok {
		t.Fatal("expected AAPL quote in cache")
	}
	if q.Bid != 150.00 || q.Ask != 150.05 {
		t.Errorf("AAPL quote = %+v, want bid 150.00 ask 150.05", q)
	}

	if _, ok := cache.Get("GOOG"); ok {
		t.Error("expected no quote for an unpublished symbol")
	}
}

func TestQuoteCache_Seed(t *testing.T) {
	cache := NewQuoteCache()
	ts := time.Now()
	cache.Seed("SPY", marketdata.Quote{Bid: 500, Ask: 500.10}, ts)

	q, ok := cache.Get("SPY")
	if !ok {
		t.Fatal("expected a seeded SPY quote")
	}
	if q.Bid != 500 || q.Ask != 500.10 || !q.Timestamp.Equal(ts) {
		t.Errorf("seeded quote = %+v, want bid 500 ask 500.10 ts %v", q, ts)
	}
}

func TestClient_Run_DialErrorSurfaces(t *testing.T) {
	cache := NewQuoteCache()
	client := New("ws://127.0.0.1:0/nope", cache, noopLogger())
	if err := client.Run(context.Background()); err == nil {
		t.Fatal("expected dial error for an unreachable address")
	}
}
