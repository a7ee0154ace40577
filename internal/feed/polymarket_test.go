package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krajekis/polysignal/internal/pricing"
)

func TestSnapshotParsesMarket(t *testing.T) {
	var gotSlug string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSlug = r.URL.Query().Get("slug")
		w.Write([]byte(`[{
			"slug": "btc-updown-15m-1767707100",
			"active": true,
			"closed": false,
			"endDate": "2026-01-06T14:00:00Z",
			"markets": [{"id": "512345", "outcomePrices": "[\"0.62\", \"0.38\"]"}]
		}]`))
	}))
	defer srv.Close()

	c := NewPolymarketClient(srv.URL, "BTC", 15)
	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)

	// The slug is timestamp-aligned to the current window boundary.
	interval := int64(15 * 60)
	windowTs := (time.Now().Unix() / interval) * interval
	assert.Equal(t, fmt.Sprintf("btc-updown-15m-%d", windowTs), gotSlug)

	assert.True(t, snap.OK)
	assert.Equal(t, "512345", snap.ID)
	assert.Equal(t, "btc-updown-15m-1767707100", snap.Slug)
	require.NotNil(t, snap.UpPrice)
	assert.InDelta(t, 0.62, *snap.UpPrice, 1e-9)
	require.NotNil(t, snap.DownPrice)
	assert.InDelta(t, 0.38, *snap.DownPrice, 1e-9)
	assert.Equal(t, time.Date(2026, 1, 6, 14, 0, 0, 0, time.UTC), snap.EndDate)
}

func TestSnapshotMarketNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewPolymarketClient(srv.URL, "BTC", 15)
	snap, err := c.Snapshot(context.Background())

	require.NoError(t, err)
	assert.False(t, snap.OK)
	assert.Equal(t, "market_not_found", snap.Reason)
}

func TestSnapshotMalformedMarket(t *testing.T) {
	cases := map[string]string{
		"null prices":    `[{"slug": "s", "markets": [{"id": "1", "outcomePrices": "null"}]}]`,
		"missing id":     `[{"slug": "s", "markets": [{"id": "", "outcomePrices": "[\"0.5\",\"0.5\"]"}]}]`,
		"one price only": `[{"slug": "s", "markets": [{"id": "1", "outcomePrices": "[\"0.5\"]"}]}]`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			c := NewPolymarketClient(srv.URL, "BTC", 15)
			snap, err := c.Snapshot(context.Background())

			require.NoError(t, err)
			assert.False(t, snap.OK)
			assert.Equal(t, "malformed_market", snap.Reason)
		})
	}
}

func TestSnapshotServerErrorIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewPolymarketClient(srv.URL, "BTC", 15)
	_, err := c.Snapshot(context.Background())
	assert.Error(t, err)
}

func TestLiveStreamHandleMessage(t *testing.T) {
	s := NewPolymarketLiveStream("BTC")

	s.handleMessage([]byte(`{
		"topic": "crypto_prices",
		"payload": {"symbol": "btc/usd", "value": 65123.45, "timestamp": 1767707100000}
	}`))

	tick := s.Last()
	require.NotNil(t, tick)
	assert.Equal(t, 65123.45, tick.Price)
	assert.Equal(t, pricing.SourcePolymarketWS, tick.Source)
	assert.Equal(t, time.UnixMilli(1767707100000), tick.UpdatedAt)
}

func TestLiveStreamIgnoresOtherSymbols(t *testing.T) {
	s := NewPolymarketLiveStream("BTC")

	s.handleMessage([]byte(`{
		"topic": "crypto_prices",
		"payload": {"symbol": "eth/usd", "value": 3500.0, "timestamp": 1767707100000}
	}`))
	assert.Nil(t, s.Last())

	s.handleMessage([]byte(`{
		"topic": "comments",
		"payload": {"symbol": "btc/usd", "value": 65000.0, "timestamp": 1767707100000}
	}`))
	assert.Nil(t, s.Last())

	s.handleMessage([]byte(`{
		"topic": "crypto_prices",
		"payload": {"symbol": "btc/usd", "value": 0, "timestamp": 1767707100000}
	}`))
	assert.Nil(t, s.Last())
}

func TestLiveStreamPingLoopEndsWithConnection(t *testing.T) {
	s := NewPolymarketLiveStream("BTC")

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		s.pingLoop(nil, done)
		close(exited)
	}()

	// Closing done stands in for the connection's read loop returning; the
	// ping loop must not outlive it and pile up across reconnects.
	close(done)
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("ping loop still running after its connection ended")
	}
}

func TestLiveStreamLastIsCopy(t *testing.T) {
	s := NewPolymarketLiveStream("BTC")
	s.handleMessage([]byte(`{"topic": "crypto_prices", "payload": {"symbol": "btc/usd", "value": 65000.0, "timestamp": 1}}`))

	tick := s.Last()
	require.NotNil(t, tick)
	tick.Price = 0

	assert.Equal(t, 65000.0, s.Last().Price)
}
