// Package feed implements the external data collaborators: the Binance
// exchange feed, the Chainlink oracle feed, and the Polymarket market feed.
// Streaming clients expose a non-blocking Last() accessor the engine reads
// at cycle start; pull methods are awaited inside the cycle.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/krajekis/polysignal/internal/pricing"
)

const (
	binanceRESTURL = "https://api.binance.com"
	binanceWSURL   = "wss://stream.binance.com:9443/ws"
)

// BinanceClient streams trades over WebSocket and serves klines and the
// last traded price over REST.
type BinanceClient struct {
	restURL string
	wsURL   string
	symbol  string
	http    *http.Client

	conn     *websocket.Conn
	lastTick *pricing.Tick

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
}

// NewBinanceClient creates a client for one symbol, e.g. BTCUSDT.
func NewBinanceClient(symbol string) *BinanceClient {
	return &BinanceClient{
		restURL: binanceRESTURL,
		wsURL:   binanceWSURL,
		symbol:  strings.ToUpper(symbol),
		http:    &http.Client{Timeout: 10 * time.Second},
		stopCh:  make(chan struct{}),
	}
}

// Start connects the trade stream and keeps it alive.
func (c *BinanceClient) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.mu.Unlock()

	go c.runWebSocket()

	log.Info().Str("symbol", c.symbol).Msg("📈 Binance client started")
	return nil
}

// Stop closes the stream.
func (c *BinanceClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
	if c.conn != nil {
		c.conn.Close()
	}
}

// Last returns the most recent streamed trade, or nil before the first one.
// Never blocks.
func (c *BinanceClient) Last() *pricing.Tick {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastTick == nil {
		return nil
	}
	t := *c.lastTick
	return &t
}

func (c *BinanceClient) runWebSocket() {
	for c.isRunning() {
		if err := c.connect(); err != nil {
			log.Error().Err(err).Msg("Binance WebSocket connection failed")
			time.Sleep(5 * time.Second)
			continue
		}

		c.readMessages()

		if c.isRunning() {
			log.Warn().Msg("Binance WebSocket disconnected, reconnecting...")
			time.Sleep(time.Second)
		}
	}
}

func (c *BinanceClient) connect() error {
	url := fmt.Sprintf("%s/%s@trade", c.wsURL, strings.ToLower(c.symbol))

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	log.Info().Str("url", url).Msg("🔌 WebSocket connected to Binance")
	return nil
}

func (c *BinanceClient) readMessages() {
	for c.isRunning() {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if c.isRunning() {
				log.Error().Err(err).Msg("Binance WebSocket read error")
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *BinanceClient) handleMessage(data []byte) {
	var msg struct {
		EventType string `json:"e"`
		Price     string `json:"p"`
		TradeTime int64  `json:"T"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.EventType != "trade" {
		return
	}

	price, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return
	}

	f, _ := price.Float64()
	c.mu.Lock()
	c.lastTick = &pricing.Tick{
		Price:     f,
		UpdatedAt: time.UnixMilli(msg.TradeTime),
		Source:    pricing.SourceBinanceWS,
	}
	c.mu.Unlock()
}

func (c *BinanceClient) isRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Klines fetches candles via REST, oldest-first. The in-progress candle is
// dropped so indicator math only ever sees closed bars.
func (c *BinanceClient) Klines(ctx context.Context, interval string, limit int) ([]pricing.Candle, error) {
	// Fetch one extra so dropping the open candle still yields limit bars.
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		c.restURL, c.symbol, interval, limit+1)

	var raw [][]interface{}
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}

	nowMs := time.Now().UnixMilli()
	candles := make([]pricing.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 7 {
			continue
		}
		openTime, _ := k[0].(float64)
		closeTime, _ := k[6].(float64)
		if int64(closeTime) > nowMs {
			continue // still forming
		}
		candles = append(candles, pricing.Candle{
			OpenTime: int64(openTime),
			Open:     parseFloat(k[1]),
			High:     parseFloat(k[2]),
			Low:      parseFloat(k[3]),
			Close:    parseFloat(k[4]),
			Volume:   parseFloat(k[5]),
		})
	}

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

// LastPrice fetches the current ticker price via REST.
func (c *BinanceClient) LastPrice(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.restURL, c.symbol)

	var raw struct {
		Price string `json:"price"`
	}
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return 0, fmt.Errorf("fetch last price: %w", err)
	}

	d, err := decimal.NewFromString(raw.Price)
	if err != nil {
		return 0, fmt.Errorf("parse last price %q: %w", raw.Price, err)
	}
	f, _ := d.Float64()
	return f, nil
}

func (c *BinanceClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseFloat(v interface{}) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}
