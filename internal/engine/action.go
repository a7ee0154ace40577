// Package engine implements the per-cycle decision pipeline: regime
// detection, probability scoring, time awareness, edge computation, the
// strategy classifier, and the paper-trade state machine.
package engine

// Side is a market direction.
type Side string

const (
	SideUp   Side = "UP"
	SideDown Side = "DOWN"
	SideNone Side = ""
)

// ActionKind is the structured outcome of the strategy classifier. The
// simulation tracker and the renderer both consume the kind directly;
// nothing ever matches on a formatted label.
type ActionKind string

const (
	KindLocked     ActionKind = "locked"
	KindFinalized  ActionKind = "finalized"
	KindArbitrage  ActionKind = "arbitrage"
	KindTrend      ActionKind = "trend"
	KindReversal   ActionKind = "reversal"
	KindChoppy     ActionKind = "choppy"
	KindMonitoring ActionKind = "monitoring"
)

// Action is the classifier verdict for one cycle.
type Action struct {
	Kind ActionKind
	Side Side
}

// Label renders the human-readable action text. Display only: consumers
// branch on Kind and Side, never on this string.
func (a Action) Label() string {
	switch a.Kind {
	case KindLocked:
		if a.Side == SideUp {
			return "🔒 LOCKED: UP (UNSTOPPABLE)"
		}
		return "🔒 LOCKED: DOWN (UNSTOPPABLE)"
	case KindFinalized:
		return "🏁 FINALIZED"
	case KindArbitrage:
		if a.Side == SideUp {
			return "💰 ARB: LONG (Binance Lead)"
		}
		return "💰 ARB: SHORT (Binance Lead)"
	case KindTrend:
		if a.Side == SideUp {
			return "🚀 STRONG LONG (Trend)"
		}
		return "🩸 STRONG SHORT (Trend)"
	case KindReversal:
		if a.Side == SideUp {
			return "🎯 SNIPER LONG (Bottom)"
		}
		return "🎯 SNIPER SHORT (Top)"
	case KindChoppy:
		return "✋ WAIT (Choppy/Mixed)"
	default:
		return "💤 MONITORING..."
	}
}
