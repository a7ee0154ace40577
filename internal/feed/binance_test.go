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

func TestHandleTradeMessage(t *testing.T) {
	c := NewBinanceClient("BTCUSDT")

	c.handleMessage([]byte(`{"e":"trade","p":"65123.45000000","T":1767707100000}`))

	tick := c.Last()
	require.NotNil(t, tick)
	assert.Equal(t, 65123.45, tick.Price)
	assert.Equal(t, pricing.SourceBinanceWS, tick.Source)
	assert.Equal(t, time.UnixMilli(1767707100000), tick.UpdatedAt)
}

func TestHandleMessageIgnoresNonTrades(t *testing.T) {
	c := NewBinanceClient("BTCUSDT")

	c.handleMessage([]byte(`{"e":"aggTrade","p":"65123.45","T":1}`))
	assert.Nil(t, c.Last())

	c.handleMessage([]byte(`{"e":"trade","p":"not-a-number","T":1}`))
	assert.Nil(t, c.Last())

	c.handleMessage([]byte(`not json`))
	assert.Nil(t, c.Last())
}

func TestKlinesDropsFormingCandle(t *testing.T) {
	nowMs := time.Now().UnixMilli()

	// Two closed candles and one still forming.
	body := fmt.Sprintf(`[
		[%d, "65000", "65100", "64900", "65050", "12.5", %d],
		[%d, "65050", "65200", "65000", "65150", "8.1", %d],
		[%d, "65150", "65300", "65100", "65200", "3.0", %d]
	]`,
		nowMs-180_000, nowMs-120_001,
		nowMs-120_000, nowMs-60_001,
		nowMs-60_000, nowMs+59_999)

	var gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewBinanceClient("BTCUSDT")
	c.restURL = srv.URL

	candles, err := c.Klines(context.Background(), "1m", 2)
	require.NoError(t, err)

	// One extra is requested so dropping the open bar still fills the limit.
	assert.Equal(t, "3", gotLimit)

	require.Len(t, candles, 2)
	assert.Equal(t, 65050.0, candles[0].Close)
	assert.Equal(t, 65150.0, candles[1].Close)
	assert.Equal(t, 12.5, candles[0].Volume)
}

func TestKlinesTrimsToLimit(t *testing.T) {
	nowMs := time.Now().UnixMilli()

	// All three closed: the oldest is trimmed to honor the limit.
	body := fmt.Sprintf(`[
		[%d, "1", "1", "1", "1", "1", %d],
		[%d, "2", "2", "2", "2", "1", %d],
		[%d, "3", "3", "3", "3", "1", %d]
	]`,
		nowMs-300_000, nowMs-240_001,
		nowMs-240_000, nowMs-180_001,
		nowMs-180_000, nowMs-120_001)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewBinanceClient("BTCUSDT")
	c.restURL = srv.URL

	candles, err := c.Klines(context.Background(), "1m", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 2.0, candles[0].Close)
	assert.Equal(t, 3.0, candles[1].Close)
}

func TestLastPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"65123.45000000"}`))
	}))
	defer srv.Close()

	c := NewBinanceClient("btcusdt")
	c.restURL = srv.URL

	price, err := c.LastPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 65123.45, price)
}

func TestLastPriceBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	c := NewBinanceClient("BTCUSDT")
	c.restURL = srv.URL

	_, err := c.LastPrice(context.Background())
	assert.Error(t, err)
}

func TestBinanceLastIsCopy(t *testing.T) {
	c := NewBinanceClient("BTCUSDT")
	c.handleMessage([]byte(`{"e":"trade","p":"65000","T":1}`))

	tick := c.Last()
	require.NotNil(t, tick)
	tick.Price = 0

	assert.Equal(t, 65000.0, c.Last().Price)
}
