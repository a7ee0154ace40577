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

	"github.com/krajekis/polysignal/internal/engine"
	"github.com/krajekis/polysignal/internal/pricing"
)

const (
	polymarketLiveWSURL = "wss://ws-live-data.polymarket.com"
	liveReconnectDelay  = 5 * time.Second
	livePingInterval    = 30 * time.Second
)

// PolymarketClient resolves the current up/down window for an asset from
// the gamma API. Windows use timestamp-aligned slugs like
// btc-updown-15m-1767707100, so the active one is addressable directly.
type PolymarketClient struct {
	apiURL        string
	asset         string
	windowMinutes int
	http          *http.Client
}

// NewPolymarketClient creates a snapshot client for one asset and window
// length.
func NewPolymarketClient(apiURL, asset string, windowMinutes int) *PolymarketClient {
	return &PolymarketClient{
		apiURL:        apiURL,
		asset:         strings.ToLower(asset),
		windowMinutes: windowMinutes,
		http:          &http.Client{Timeout: 10 * time.Second},
	}
}

// Snapshot fetches the active window. A missing market or a payload with
// required fields absent reports OK=false with a reason; only transport
// failures return an error.
func (c *PolymarketClient) Snapshot(ctx context.Context) (engine.Snapshot, error) {
	interval := int64(c.windowMinutes) * 60
	windowTs := (time.Now().Unix() / interval) * interval
	slug := fmt.Sprintf("%s-updown-%dm-%d", c.asset, c.windowMinutes, windowTs)

	url := fmt.Sprintf("%s/events?slug=%s", c.apiURL, slug)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return engine.Snapshot{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("fetch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return engine.Snapshot{}, fmt.Errorf("gamma API status %d", resp.StatusCode)
	}

	var events []struct {
		Slug    string `json:"slug"`
		Active  bool   `json:"active"`
		Closed  bool   `json:"closed"`
		EndDate string `json:"endDate"`
		Markets []struct {
			ID            string `json:"id"`
			OutcomePrices string `json:"outcomePrices"`
		} `json:"markets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return engine.Snapshot{}, fmt.Errorf("decode events: %w", err)
	}

	if len(events) == 0 || len(events[0].Markets) == 0 {
		return engine.Snapshot{OK: false, Reason: "market_not_found"}, nil
	}

	event := events[0]
	market := event.Markets[0]

	if market.ID == "" || market.OutcomePrices == "" || market.OutcomePrices == "null" {
		return engine.Snapshot{OK: false, Reason: "malformed_market"}, nil
	}

	var prices []string
	if err := json.Unmarshal([]byte(market.OutcomePrices), &prices); err != nil || len(prices) < 2 {
		return engine.Snapshot{OK: false, Reason: "malformed_market"}, nil
	}

	snap := engine.Snapshot{
		OK:        true,
		ID:        market.ID,
		Slug:      event.Slug,
		UpPrice:   parsePrice(prices[0]),
		DownPrice: parsePrice(prices[1]),
	}
	if event.EndDate != "" {
		if end, err := time.Parse(time.RFC3339, event.EndDate); err == nil {
			snap.EndDate = end
		}
	}
	return snap, nil
}

func parsePrice(s string) *float64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	f, _ := d.Float64()
	return &f
}

// PolymarketLiveStream subscribes to Polymarket's live-data WebSocket for
// the oracle price feed the markets settle against. This is the highest
// priority oracle source: it is what the market itself sees.
type PolymarketLiveStream struct {
	wsURL  string
	symbol string // e.g. btc/usd

	conn     *websocket.Conn
	lastTick *pricing.Tick

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
}

// NewPolymarketLiveStream creates a live price stream for one symbol.
func NewPolymarketLiveStream(asset string) *PolymarketLiveStream {
	return &PolymarketLiveStream{
		wsURL:  polymarketLiveWSURL,
		symbol: strings.ToLower(asset) + "/usd",
		stopCh: make(chan struct{}),
	}
}

// Start connects and keeps the subscription alive.
func (s *PolymarketLiveStream) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	go s.connectionLoop()

	log.Info().Str("symbol", s.symbol).Msg("📡 Polymarket live stream started")
	return nil
}

// Stop closes the stream.
func (s *PolymarketLiveStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	if s.conn != nil {
		s.conn.Close()
	}
}

// Last returns the most recent streamed oracle price, or nil. Never blocks.
func (s *PolymarketLiveStream) Last() *pricing.Tick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastTick == nil {
		return nil
	}
	t := *s.lastTick
	return &t
}

func (s *PolymarketLiveStream) connectionLoop() {
	for s.isRunning() {
		if err := s.connect(); err != nil {
			log.Error().Err(err).Msg("Polymarket live WebSocket connection failed")
			time.Sleep(liveReconnectDelay)
			continue
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()

		// Ping loop lifetime is tied to this connection, not the stream:
		// each reconnect gets a fresh one and the old one exits, so only a
		// single goroutine ever writes to a given conn.
		done := make(chan struct{})
		go s.pingLoop(conn, done)
		s.readMessages()
		close(done)

		if s.isRunning() {
			log.Warn().Msg("Polymarket live WebSocket disconnected, reconnecting...")
			time.Sleep(time.Second)
		}
	}
}

func (s *PolymarketLiveStream) connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	sub := map[string]interface{}{
		"action": "subscribe",
		"subscriptions": []map[string]string{
			{
				"topic":   "crypto_prices",
				"type":    "update",
				"filters": fmt.Sprintf(`{"symbol":"%s"}`, s.symbol),
			},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe failed: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	log.Info().Str("url", s.wsURL).Msg("🔌 WebSocket connected to Polymarket live data")
	return nil
}

func (s *PolymarketLiveStream) readMessages() {
	for s.isRunning() {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if s.isRunning() {
				log.Error().Err(err).Msg("Polymarket live WebSocket read error")
			}
			return
		}
		s.handleMessage(message)
	}
}

func (s *PolymarketLiveStream) handleMessage(data []byte) {
	var msg struct {
		Topic   string `json:"topic"`
		Payload struct {
			Symbol    string  `json:"symbol"`
			Value     float64 `json:"value"`
			Timestamp int64   `json:"timestamp"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.Topic != "crypto_prices" || msg.Payload.Value <= 0 {
		return
	}
	if msg.Payload.Symbol != "" && !strings.EqualFold(msg.Payload.Symbol, s.symbol) {
		return
	}

	s.mu.Lock()
	s.lastTick = &pricing.Tick{
		Price:     msg.Payload.Value,
		UpdatedAt: time.UnixMilli(msg.Payload.Timestamp),
		Source:    pricing.SourcePolymarketWS,
	}
	s.mu.Unlock()
}

func (s *PolymarketLiveStream) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if conn != nil {
				conn.WriteMessage(websocket.PingMessage, nil)
			}
		case <-done:
			return
		}
	}
}

func (s *PolymarketLiveStream) isRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
