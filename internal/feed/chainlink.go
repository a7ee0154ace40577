package feed

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/krajekis/polysignal/internal/pricing"
)

// Chainlink price feeds on Polygon — the same aggregators Polymarket's
// up/down windows resolve against.
const (
	btcUSDFeedAddress = "0xc907E116054Ad103354f2D350FD2514433D57F6f"
	polygonRPC        = "https://polygon-rpc.com"

	latestRoundDataSelector = "feaf968c" // latestRoundData()
	latestAnswerSelector    = "50d25bcd" // latestAnswer()
)

// ChainlinkClient reads the oracle aggregator over JSON-RPC. It serves both
// roles the aggregator pipeline needs: a background poll loop that exposes
// the latest print via Last(), and a direct Fetch used as the cycle's
// polled fallback when the streamed accessors are empty.
type ChainlinkClient struct {
	rpcURL      string
	feedAddress string
	decimals    int32
	http        *http.Client

	lastTick     *pricing.Tick
	pollInterval time.Duration

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
}

// NewChainlinkClient creates a client for the BTC/USD feed on Polygon.
func NewChainlinkClient() *ChainlinkClient {
	return &ChainlinkClient{
		rpcURL:       polygonRPC,
		feedAddress:  btcUSDFeedAddress,
		decimals:     8, // Chainlink BTC/USD uses 8 decimals
		http:         &http.Client{Timeout: 5 * time.Second},
		pollInterval: time.Second,
		stopCh:       make(chan struct{}),
	}
}

// Start begins the background poll loop.
func (c *ChainlinkClient) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.mu.Unlock()

	go c.pollLoop()

	log.Info().
		Str("feed", c.feedAddress).
		Str("network", "Polygon").
		Msg("⛓️ Chainlink client started")
	return nil
}

// Stop halts the poll loop.
func (c *ChainlinkClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
}

// Last returns the most recent polled oracle print, or nil. Never blocks.
func (c *ChainlinkClient) Last() *pricing.Tick {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastTick == nil {
		return nil
	}
	t := *c.lastTick
	return &t
}

func (c *ChainlinkClient) pollLoop() {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			tick, err := c.Fetch(ctx)
			cancel()
			if err != nil {
				log.Debug().Err(err).Msg("Chainlink price fetch failed")
				continue
			}
			c.mu.Lock()
			c.lastTick = tick
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

// Fetch reads the latest oracle round directly. Used inside the cycle as
// the last-resort oracle source.
func (c *ChainlinkClient) Fetch(ctx context.Context) (*pricing.Tick, error) {
	result, err := c.ethCall(ctx, latestRoundDataSelector)
	if err == nil && len(result) >= 160 {
		// (uint80 roundId, int256 answer, uint256 startedAt,
		//  uint256 updatedAt, uint80 answeredInRound)
		answer := new(big.Int).SetBytes(result[32:64])
		updatedAt := new(big.Int).SetBytes(result[96:128]).Int64()

		price := decimal.NewFromBigInt(answer, -c.decimals)
		f, _ := price.Float64()
		return &pricing.Tick{
			Price:     f,
			UpdatedAt: time.Unix(updatedAt, 0),
			Source:    pricing.SourceChainlink,
		}, nil
	}

	// Fallback to the simpler latestAnswer()
	result, err = c.ethCall(ctx, latestAnswerSelector)
	if err != nil {
		return nil, err
	}
	if len(result) < 32 {
		return nil, fmt.Errorf("invalid response length: %d", len(result))
	}

	answer := new(big.Int).SetBytes(result)
	price := decimal.NewFromBigInt(answer, -c.decimals)
	f, _ := price.Float64()
	return &pricing.Tick{
		Price:     f,
		UpdatedAt: time.Now(),
		Source:    pricing.SourceChainlink,
	}, nil
}

// ethCall performs an eth_call RPC request against the aggregator.
func (c *ChainlinkClient) ethCall(ctx context.Context, selector string) ([]byte, error) {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "eth_call",
		"params": []interface{}{
			map[string]string{
				"to":   c.feedAddress,
				"data": "0x" + selector,
			},
			"latest",
		},
		"id": 1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Result string `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("RPC error: %s", result.Error.Message)
	}

	return hex.DecodeString(strings.TrimPrefix(result.Result, "0x"))
}
