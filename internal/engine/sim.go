package engine

// Trade is one hypothetical position. At most one is open at a time.
type Trade struct {
	Side        Side
	PriceToBeat float64
	MarketID    string
}

// Settlement records the outcome of a closed trade.
type Settlement struct {
	Trade      Trade
	FinalPrice *float64
	Won        bool
}

// Tracker is the paper-trading state machine. It opens a position when the
// classifier emits a strong trend label and settles it exactly once, on the
// cycle where the observed market identity rolls over.
//
// The tracker is owned by the engine's single cycle loop and needs no
// locking there; callers running cycles from multiple goroutines must
// serialize access themselves.
type Tracker struct {
	TotalTrades int
	Wins        int
	Losses      int

	lastMarketID string
	active       *Trade
}

// Settle checks for a market rollover and, if a trade is open, scores it
// against the new cycle's oracle price. UP wins strictly above the anchored
// price to beat; a tie goes to DOWN, matching how up/down windows resolve
// (Up needs a higher final print). A missing settlement price counts as a
// loss. Returns the settlement, or nil when nothing closed.
func (t *Tracker) Settle(currentMarketID string, currentPrice *float64) *Settlement {
	if currentMarketID == "" {
		return nil
	}
	if t.lastMarketID == "" {
		t.lastMarketID = currentMarketID
		return nil
	}
	if currentMarketID == t.lastMarketID {
		return nil
	}

	t.lastMarketID = currentMarketID
	if t.active == nil {
		return nil
	}

	trade := *t.active
	t.active = nil

	won := false
	if currentPrice != nil {
		if trade.Side == SideUp {
			won = *currentPrice > trade.PriceToBeat
		} else {
			won = *currentPrice <= trade.PriceToBeat
		}
	}

	if won {
		t.Wins++
	} else {
		t.Losses++
	}

	return &Settlement{Trade: trade, FinalPrice: currentPrice, Won: won}
}

// MaybeEnter opens a trade when the classifier emitted a strong directional
// trend label, no trade is open, the market is known, and the window's
// reference price is anchored. Returns the opened trade or nil.
func (t *Tracker) MaybeEnter(action Action, marketID string, priceToBeat *float64) *Trade {
	if t.active != nil || marketID == "" || priceToBeat == nil {
		return nil
	}
	if action.Kind != KindTrend || (action.Side != SideUp && action.Side != SideDown) {
		return nil
	}

	t.active = &Trade{
		Side:        action.Side,
		PriceToBeat: *priceToBeat,
		MarketID:    marketID,
	}
	t.TotalTrades++

	trade := *t.active
	return &trade
}

// Active returns a copy of the open trade, or nil while scanning.
func (t *Tracker) Active() *Trade {
	if t.active == nil {
		return nil
	}
	trade := *t.active
	return &trade
}

// WinRate is wins over settled trades, in percent.
func (t *Tracker) WinRate() float64 {
	settled := t.Wins + t.Losses
	if settled == 0 {
		return 0
	}
	return float64(t.Wins) / float64(settled) * 100
}
