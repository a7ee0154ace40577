package pricing

import "context"

// Source names, in the fixed priority order the resolver walks them.
// Priority is by source class, not by recency.
const (
	SourcePolymarketWS = "polymarket_ws"
	SourceChainlinkWS  = "chainlink_ws"
	SourceChainlink    = "chainlink"
	SourceBinanceWS    = "binance_ws"
	SourceBinance      = "binance"
)

// OracleFetcher is the polled oracle fallback. It is only awaited when every
// streamed oracle source is empty, so a healthy stream never costs a network
// round trip.
type OracleFetcher func(ctx context.Context) (*Tick, error)

// CurrentPrice resolves the oracle-class price for a cycle: the first
// non-nil streamed tick wins, in the order given; the polled fetch is the
// last resort. Returns nil when nothing is available and no fetcher is set.
func CurrentPrice(ctx context.Context, streamed []*Tick, fetch OracleFetcher) (*Tick, error) {
	for _, t := range streamed {
		if t != nil {
			return t, nil
		}
	}
	if fetch == nil {
		return nil, nil
	}
	return fetch(ctx)
}

// SpotPrice resolves the exchange-class price: the streamed tick if present,
// else the polled last price. lastPrice is nil when the poll failed.
func SpotPrice(streamed *Tick, lastPrice *float64) *Tick {
	if streamed != nil {
		return streamed
	}
	if lastPrice == nil {
		return nil
	}
	return &Tick{Price: *lastPrice, Source: SourceBinance}
}
