package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEdgeBothSides(t *testing.T) {
	e := ComputeEdge(0.62, 0.38, f(0.55), f(0.45))

	require.NotNil(t, e.Up)
	require.NotNil(t, e.Down)
	assert.InDelta(t, 0.07, *e.Up, 1e-9)
	assert.InDelta(t, -0.07, *e.Down, 1e-9)
}

func TestComputeEdgeMissingMarket(t *testing.T) {
	e := ComputeEdge(0.62, 0.38, nil, nil)
	assert.Nil(t, e.Up)
	assert.Nil(t, e.Down)
}

func TestComputeEdgeOneSided(t *testing.T) {
	e := ComputeEdge(0.62, 0.38, f(0.50), nil)
	require.NotNil(t, e.Up)
	assert.Nil(t, e.Down)
	assert.InDelta(t, 0.12, *e.Up, 1e-9)
}

func TestDecideThresholdSlides(t *testing.T) {
	p := DeciderPolicy{EnterProbEarly: 0.62, EnterProbLate: 0.55}

	// 0.58 clears the late threshold but not the early one.
	early := p.Decide(15, 15, 0.58, 0.42)
	assert.Equal(t, ActionNoTrade, early.Action)
	assert.Equal(t, PhaseEarly, early.Phase)

	late := p.Decide(1, 15, 0.58, 0.42)
	assert.Equal(t, ActionEnter, late.Action)
	assert.Equal(t, SideUp, late.Side)
	assert.Equal(t, PhaseLate, late.Phase)
}

func TestDecideDownSide(t *testing.T) {
	p := DeciderPolicy{EnterProbEarly: 0.62, EnterProbLate: 0.55}

	rec := p.Decide(1, 15, 0.3, 0.7)
	assert.Equal(t, ActionEnter, rec.Action)
	assert.Equal(t, SideDown, rec.Side)
}

func TestDecidePhases(t *testing.T) {
	p := DeciderPolicy{EnterProbEarly: 0.99, EnterProbLate: 0.99}

	assert.Equal(t, PhaseEarly, p.Decide(12, 15, 0.5, 0.5).Phase)
	assert.Equal(t, PhaseMid, p.Decide(7.5, 15, 0.5, 0.5).Phase)
	assert.Equal(t, PhaseLate, p.Decide(2, 15, 0.5, 0.5).Phase)
}

func TestDecideCoinFlipNeverEnters(t *testing.T) {
	p := DeciderPolicy{EnterProbEarly: 0.62, EnterProbLate: 0.55}

	rec := p.Decide(0.5, 15, 0.5, 0.5)
	assert.Equal(t, ActionNoTrade, rec.Action)
	assert.Equal(t, SideNone, rec.Side)
}
