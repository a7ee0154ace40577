package engine

import (
	"math"

	"github.com/krajekis/polysignal/internal/indicators"
)

// Vote weights for the directional scorer. The squash constant maps the
// maximum combined vote (~4.5) to a raw probability near 0.97.
const (
	weightVWAP    = 1.0
	weightRSI     = 0.5
	weightSlope   = 0.5
	weightMACD    = 1.0
	weightHeiken  = 1.0
	heikenRunStep = 0.1 // extra vote per consecutive candle, capped
	heikenRunCap  = 5
	squashK       = 0.8
)

// ScoreInputs is the indicator snapshot the scorer votes over. A nil field
// means the indicator had insufficient history and contributes no vote.
type ScoreInputs struct {
	Price         *float64
	VWAP          *float64
	RSI           *float64
	RSISlope      *float64
	MACDHistogram *float64
	HeikenColor   string
	HeikenCount   int
}

// ScoreDirection combines the indicator votes into a raw upward probability
// in [0,1]. Monotone: an extra bullish vote never lowers the result.
func ScoreDirection(in ScoreInputs) float64 {
	score := 0.0

	if in.Price != nil && in.VWAP != nil {
		score += weightVWAP * sign(*in.Price-*in.VWAP)
	}
	if in.RSI != nil {
		// Linear in RSI distance from the 50 midline, saturating at ±20.
		score += weightRSI * clamp((*in.RSI-50)/20, -1, 1)
	}
	if in.RSISlope != nil {
		score += weightSlope * sign(*in.RSISlope)
	}
	if in.MACDHistogram != nil {
		score += weightMACD * sign(*in.MACDHistogram)
	}
	switch in.HeikenColor {
	case indicators.ColorGreen:
		score += weightHeiken + heikenRunStep*float64(minInt(in.HeikenCount, heikenRunCap))
	case indicators.ColorRed:
		score -= weightHeiken + heikenRunStep*float64(minInt(in.HeikenCount, heikenRunCap))
	}

	// Logistic squash keeps the result strictly inside (0,1).
	return 1 / (1 + math.Exp(-squashK*score))
}

// TimeAware is the time-adjusted probability pair.
// AdjustedUp + AdjustedDown is always exactly 1.
type TimeAware struct {
	AdjustedUp   float64
	AdjustedDown float64
}

// identityFrac is the fraction of the window remaining at which the raw
// lean passes through unchanged. Above it the signal is damped toward 0.5,
// below it amplified toward certainty, so with roughly two thirds of the
// window left the adjusted probability already sits slightly past the raw
// one.
const identityFrac = 0.7

// ApplyTimeAwareness reshapes rawUp by how much of the window remains.
//
// With the whole window ahead the output sits at 0.5 regardless of the raw
// signal. As settlement approaches the raw lean is amplified toward 0 or 1,
// except inside the neutral band around 0.5 where a near-coin-flip signal
// is carried through unamplified rather than inflated out of noise.
func ApplyTimeAwareness(rawUp, remainingMinutes, totalMinutes, neutralBand float64) TimeAware {
	rawUp = clamp(rawUp, 0, 1)
	if totalMinutes <= 0 {
		return pair(rawUp)
	}

	frac := clamp(remainingMinutes/totalMinutes, 0, 1)
	lean := rawUp - 0.5
	if lean == 0 || frac >= 1 {
		return pair(0.5)
	}

	// gamma > 1 damps toward 0.5 early in the window, gamma < 1 amplifies
	// toward certainty late. gamma == 1 exactly at identityFrac remaining.
	gamma := frac / (1 - frac) * (1 - identityFrac) / identityFrac
	if math.Abs(lean) <= neutralBand && gamma < 1 {
		gamma = 1
	}

	adjusted := 0.5 + math.Copysign(0.5*math.Pow(2*math.Abs(lean), gamma), lean)
	return pair(clamp(adjusted, 0, 1))
}

func pair(up float64) TimeAware {
	return TimeAware{AdjustedUp: up, AdjustedDown: 1 - up}
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
