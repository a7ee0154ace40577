// Package indicators computes the technical indicators the signal engine
// consumes. Every function is pure: same candle sequence in, same value out.
//
// Indicators computed over insufficient history report ok=false. Callers
// must treat that as "no data", not as zero — a substituted neutral value
// would silently poison every consumer downstream.
package indicators

import (
	"github.com/krajekis/polysignal/internal/pricing"
)

// VWAPSeries returns the cumulative session VWAP aligned one-to-one with
// the candle sequence. Session scoping (where the sequence starts) is the
// caller's concern; the series is recomputed over whatever it is given.
func VWAPSeries(candles []pricing.Candle) []float64 {
	if len(candles) == 0 {
		return nil
	}

	series := make([]float64, len(candles))
	var cumPV, cumVol float64

	for i, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		cumPV += typical * c.Volume
		cumVol += c.Volume
		if cumVol == 0 {
			series[i] = c.Close
			continue
		}
		series[i] = cumPV / cumVol
	}

	return series
}

// RSI calculates the Wilder relative strength index over closes.
// Needs at least period+1 closes for one full set of changes.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing over the remainder
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// RSISeries evaluates RSI over every prefix of closes and returns the
// defined values, oldest-first. Used for the short-term RSI slope.
func RSISeries(closes []float64, period int) []float64 {
	series := make([]float64, 0, len(closes))
	for i := period + 1; i <= len(closes); i++ {
		if v, ok := RSI(closes[:i], period); ok {
			series = append(series, v)
		}
	}
	return series
}

// SlopeLast returns the signed change across the trailing n samples of a
// series: last value minus the value n-1 samples back.
func SlopeLast(series []float64, n int) (float64, bool) {
	if n < 2 || len(series) < n {
		return 0, false
	}
	return series[len(series)-1] - series[len(series)-n], true
}

// MACDResult is the MACD triple.
type MACDResult struct {
	MACDLine   float64
	SignalLine float64
	Histogram  float64
}

// MACD computes fast EMA minus slow EMA over closes, a signal EMA over the
// MACD line, and their difference. Needs at least slow+signal closes.
func MACD(closes []float64, fast, slow, signal int) (MACDResult, bool) {
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) < slow+signal {
		return MACDResult{}, false
	}

	fastSeries := emaSeries(closes, fast)
	slowSeries := emaSeries(closes, slow)

	// MACD line is defined wherever the slow EMA is.
	macdLine := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		macdLine = append(macdLine, fastSeries[i]-slowSeries[i])
	}

	signalSeries := emaSeries(macdLine, signal)

	m := macdLine[len(macdLine)-1]
	s := signalSeries[len(signalSeries)-1]
	return MACDResult{MACDLine: m, SignalLine: s, Histogram: m - s}, true
}

// emaSeries returns an EMA aligned with values: entries before index
// period-1 carry the running SMA seed and are not meaningful on their own.
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	multiplier := 2.0 / float64(period+1)
	var seed float64
	for i, v := range values {
		if i < period {
			seed += v
			out[i] = seed / float64(i+1)
			continue
		}
		out[i] = (v-out[i-1])*multiplier + out[i-1]
	}
	return out
}
