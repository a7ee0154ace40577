package engine

// Edge is the signed model-vs-market disagreement per side. Nil means the
// market snapshot was unavailable — an unknown edge is not a zero edge.
type Edge struct {
	Up   *float64
	Down *float64
}

// ComputeEdge subtracts the market-implied probability from the model's.
func ComputeEdge(modelUp, modelDown float64, marketUp, marketDown *float64) Edge {
	var e Edge
	if marketUp != nil {
		v := modelUp - *marketUp
		e.Up = &v
	}
	if marketDown != nil {
		v := modelDown - *marketDown
		e.Down = &v
	}
	return e
}

// Decider actions.
const (
	ActionEnter   = "ENTER"
	ActionNoTrade = "NO_TRADE"
)

// Window lifecycle phases, informational only.
const (
	PhaseEarly = "early"
	PhaseMid   = "mid"
	PhaseLate  = "late"
)

// Recommendation is the discrete open/pass verdict for the cycle.
type Recommendation struct {
	Action string
	Side   Side
	Phase  string
}

// DeciderPolicy holds the confidence thresholds. The effective threshold
// slides from Early (strict, most of the window left) to Late (loose, near
// settlement), mirroring how time awareness grows certainty.
type DeciderPolicy struct {
	EnterProbEarly float64
	EnterProbLate  float64
}

// Decide turns the adjusted probabilities and remaining time into an
// ENTER/NO_TRADE recommendation with a side and a phase label.
func (p DeciderPolicy) Decide(remainingMinutes, totalMinutes, modelUp, modelDown float64) Recommendation {
	frac := 0.0
	if totalMinutes > 0 {
		frac = clamp(remainingMinutes/totalMinutes, 0, 1)
	}

	phase := PhaseLate
	switch {
	case frac > 2.0/3.0:
		phase = PhaseEarly
	case frac > 1.0/3.0:
		phase = PhaseMid
	}

	threshold := p.EnterProbLate + (p.EnterProbEarly-p.EnterProbLate)*frac

	rec := Recommendation{Action: ActionNoTrade, Phase: phase}
	switch {
	case modelUp >= threshold:
		rec.Action = ActionEnter
		rec.Side = SideUp
	case modelDown >= threshold:
		rec.Action = ActionEnter
		rec.Side = SideDown
	}
	return rec
}
