package engine

import "github.com/krajekis/polysignal/internal/indicators"

// Classifier is the ordered rule cascade that maps the full cycle state to
// one action. Rules are checked strictly in order; the first match wins.
// Thresholds are policy, injected from configuration.
type Classifier struct {
	LockInMinutes   float64
	LockInProb      float64
	FinalizeMinutes float64
	FinalizeProb    float64
	ArbGapUSD       float64
	RSIOverbought   float64
	RSIOversold     float64
}

// ClassifyInputs is everything the cascade looks at. Nil means the value is
// unavailable this cycle; rules needing it simply do not fire.
type ClassifyInputs struct {
	RSI              *float64
	Delta1           *float64 // short-term close delta
	Delta3           *float64 // medium-term close delta
	HeikenColor      string
	RemainingMinutes *float64
	ModelUp          float64
	ModelDown        float64
	MarketUp         *float64
	MarketDown       *float64
	SpotPrice        *float64
	CurrentPrice     *float64
}

// Classify runs the cascade:
//
//  1. lock-in / finalized (near-zero time, near-certain side)
//  2. arbitrage (exchange price leading the oracle beyond the gap)
//  3. trend following (deltas and Heiken color agree, RSI not exhausted)
//  4. sniper reversal (RSI extreme, delta and color turning against it)
//  5. choppy (deltas disagree)
//  6. monitoring
func (c *Classifier) Classify(in ClassifyInputs) Action {
	// 1. Lock-in detection
	if in.RemainingMinutes != nil && *in.RemainingMinutes <= c.LockInMinutes {
		if in.ModelUp >= c.LockInProb || geq(in.MarketUp, c.LockInProb) {
			return Action{Kind: KindLocked, Side: SideUp}
		}
		if in.ModelDown >= c.LockInProb || geq(in.MarketDown, c.LockInProb) {
			return Action{Kind: KindLocked, Side: SideDown}
		}
		if *in.RemainingMinutes <= c.FinalizeMinutes &&
			(gt(in.MarketUp, c.FinalizeProb) || gt(in.MarketDown, c.FinalizeProb)) {
			return Action{Kind: KindFinalized}
		}
	}

	// 2. Arbitrage signal: spot leading the oracle print
	if in.SpotPrice != nil && in.CurrentPrice != nil {
		gap := *in.SpotPrice - *in.CurrentPrice
		if gap > c.ArbGapUSD {
			return Action{Kind: KindArbitrage, Side: SideUp}
		}
		if gap < -c.ArbGapUSD {
			return Action{Kind: KindArbitrage, Side: SideDown}
		}
	}

	haGreen := in.HeikenColor == indicators.ColorGreen
	haRed := in.HeikenColor == indicators.ColorRed

	// 3. Trend following
	if in.Delta1 != nil && in.Delta3 != nil && in.RSI != nil {
		if *in.Delta1 > 0 && *in.Delta3 > 0 && haGreen && *in.RSI < c.RSIOverbought {
			return Action{Kind: KindTrend, Side: SideUp}
		}
		if *in.Delta1 < 0 && *in.Delta3 < 0 && haRed && *in.RSI > c.RSIOversold {
			return Action{Kind: KindTrend, Side: SideDown}
		}
	}

	// 4. Sniper reversals
	if in.RSI != nil && in.Delta1 != nil {
		if *in.RSI > c.RSIOverbought && *in.Delta1 < 0 && haRed {
			return Action{Kind: KindReversal, Side: SideDown}
		}
		if *in.RSI < c.RSIOversold && *in.Delta1 > 0 && haGreen {
			return Action{Kind: KindReversal, Side: SideUp}
		}
	}

	// 5. Choppy
	if in.Delta1 != nil && in.Delta3 != nil {
		if (*in.Delta1 > 0 && *in.Delta3 < 0) || (*in.Delta1 < 0 && *in.Delta3 > 0) {
			return Action{Kind: KindChoppy}
		}
	}

	return Action{Kind: KindMonitoring}
}

func geq(v *float64, threshold float64) bool {
	return v != nil && *v >= threshold
}

func gt(v *float64, threshold float64) bool {
	return v != nil && *v > threshold
}
