// Package feed implements a streaming quote client over gorilla/websocket
// (SPEC_FULL.md §11, data_feed). The read/write pump goroutines and
// ping/pong keepalive are adapted from the teacher's cmd/dashboard/websocket.go
// server-side handler, turned around into a client dialer: deadlines are
// refreshed on every pong, and a ticker drives periodic pings the same way.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rvora/eqtrader/internal/marketdata"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
)

// CachedQuote pairs a top-of-book quote with the time it was received.
type CachedQuote struct {
	marketdata.Quote
	Symbol    string
	Timestamp time.Time
}

// QuoteCache holds the latest quote per symbol, safe for concurrent reads
// from the control loop while the feed client writes updates.
type QuoteCache struct {
	mu     sync.RWMutex
	quotes map[string]CachedQuote
}

// NewQuoteCache returns an empty cache.
func NewQuoteCache() *QuoteCache {
	return &QuoteCache{quotes: map[string]CachedQuote{}}
}

// Get returns the latest cached quote for symbol, or false if none arrived yet.
func (c *QuoteCache) Get(symbol string) (CachedQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[symbol]
	return q, ok
}

func (c *QuoteCache) set(cq CachedQuote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[cq.Symbol] = cq
}

// Seed primes the cache with a quote from outside the websocket stream,
// e.g. a REST snapshot taken before Run's connection comes up.
func (c *QuoteCache) Seed(symbol string, q marketdata.Quote, ts time.Time) {
	c.set(CachedQuote{Quote: q, Symbol: symbol, Timestamp: ts})
}

// wireQuote is the on-the-wire shape published by the vendor data feed.
type wireQuote struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Ts     int64   `json:"ts"` // unix seconds
}

// Client maintains one websocket connection to a vendor quote stream and
// feeds every update into a QuoteCache.
type Client struct {
	url    string
	cache  *QuoteCache
	log    zerolog.Logger
	dialer *websocket.Dialer
}

// New creates a feed client that will publish into cache on Run.
func New(url string, cache *QuoteCache, log zerolog.Logger) *Client {
	return &Client{url: url, cache: cache, log: log.With().Str("component", "feed").Logger(), dialer: websocket.DefaultDialer}
}

// Run dials the vendor feed and pumps quote updates into the cache until
// ctx is canceled or the connection ends. It returns a non-nil error when
// dialing fails or when reading ends on a close frame whose code is neither
// going-away nor abnormal closure; any other read failure ends Run with nil.
func (c *Client) Run(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", c.url, err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	go c.writePump(ctx, conn, done)

	return c.readPump(conn, done)
}

func (c *Client) writePump(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Warn().Err(err).Msg("feed: ping failed")
				return
			}
		}
	}
}

func (c *Client) readPump(conn *websocket.Conn, done chan struct{}) error {
	defer close(done)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				return fmt.Errorf("feed: read: %w", err)
			}
			return nil
		}
		var wq wireQuote
		if err := json.Unmarshal(payload, &wq); err != nil {
			c.log.Warn().Err(err).Msg("feed: malformed quote payload")
			continue
		}
		c.cache.set(CachedQuote{
			Quote:     marketdata.Quote{Bid: wq.Bid, Ask: wq.Ask},
			Symbol:    wq.Symbol,
			Timestamp: time.Unix(wq.Ts, 0).UTC(),
		})
	}
}
