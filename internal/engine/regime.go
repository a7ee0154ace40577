package engine

// Regime classifies price relative to session VWAP.
type Regime string

const (
	RegimeAboveVWAP Regime = "above-vwap"
	RegimeBelowVWAP Regime = "below-vwap"
	RegimeAtVWAP    Regime = "at-vwap"
	RegimeUnknown   Regime = "unknown"
)

// DetectRegime labels price vs VWAP. The epsilon band keeps the label from
// flapping when price oscillates within noise of the VWAP line.
func DetectRegime(price, vwap *float64, epsilon float64) Regime {
	if price == nil || vwap == nil {
		return RegimeUnknown
	}

	diff := *price - *vwap
	switch {
	case diff > epsilon:
		return RegimeAboveVWAP
	case diff < -epsilon:
		return RegimeBelowVWAP
	default:
		return RegimeAtVWAP
	}
}
