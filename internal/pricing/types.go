// Package pricing holds the market-data primitives shared by the feeds and
// the signal engine, and the resolver that reconciles multiple price sources
// into the two scalars the pipeline runs on.
package pricing

import "time"

// Candle is one closed OHLCV bar, oldest-first in any sequence.
// In-progress bars are dropped at the feed boundary so indicator math never
// sees look-ahead data.
type Candle struct {
	OpenTime int64 // unix milliseconds
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Tick is the most recent observation from a single price source.
// A missing observation is a nil *Tick, never a zero price.
type Tick struct {
	Price     float64
	UpdatedAt time.Time
	Source    string
}

// Closes extracts the close series from a candle sequence.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}
