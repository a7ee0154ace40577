package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaybeEnterOnlyOnTrend(t *testing.T) {
	var tr Tracker

	assert.Nil(t, tr.MaybeEnter(Action{Kind: KindMonitoring}, "m1", f(65_000)))
	assert.Nil(t, tr.MaybeEnter(Action{Kind: KindArbitrage, Side: SideUp}, "m1", f(65_000)))
	assert.Nil(t, tr.MaybeEnter(Action{Kind: KindLocked, Side: SideUp}, "m1", f(65_000)))

	trade := tr.MaybeEnter(Action{Kind: KindTrend, Side: SideUp}, "m1", f(65_000))
	require.NotNil(t, trade)
	assert.Equal(t, SideUp, trade.Side)
	assert.Equal(t, 65_000.0, trade.PriceToBeat)
	assert.Equal(t, "m1", trade.MarketID)
	assert.Equal(t, 1, tr.TotalTrades)
}

func TestMaybeEnterPreconditions(t *testing.T) {
	var tr Tracker
	action := Action{Kind: KindTrend, Side: SideUp}

	assert.Nil(t, tr.MaybeEnter(action, "", f(65_000)), "unknown market")
	assert.Nil(t, tr.MaybeEnter(action, "m1", nil), "no anchored price")

	require.NotNil(t, tr.MaybeEnter(action, "m1", f(65_000)))
	assert.Nil(t, tr.MaybeEnter(action, "m1", f(65_000)), "already in a trade")
	assert.Equal(t, 1, tr.TotalTrades)
}

func TestSettleUpWinsStrictlyAbove(t *testing.T) {
	var tr Tracker
	tr.Settle("m1", f(65_000))
	require.NotNil(t, tr.MaybeEnter(Action{Kind: KindTrend, Side: SideUp}, "m1", f(65_000)))

	s := tr.Settle("m2", f(65_001))
	require.NotNil(t, s)
	assert.True(t, s.Won)
	assert.Equal(t, 1, tr.Wins)
	assert.Nil(t, tr.Active())
}

func TestSettleTieGoesToDown(t *testing.T) {
	// An unchanged final print resolves the window DOWN: UP pays only on a
	// strictly higher price.
	var tr Tracker
	tr.Settle("m1", f(65_000))
	tr.MaybeEnter(Action{Kind: KindTrend, Side: SideUp}, "m1", f(65_000))

	s := tr.Settle("m2", f(65_000))
	require.NotNil(t, s)
	assert.False(t, s.Won)

	tr.MaybeEnter(Action{Kind: KindTrend, Side: SideDown}, "m2", f(65_000))
	s = tr.Settle("m3", f(65_000))
	require.NotNil(t, s)
	assert.True(t, s.Won)
}

func TestSettleMissingPriceIsLoss(t *testing.T) {
	var tr Tracker
	tr.Settle("m1", f(65_000))
	tr.MaybeEnter(Action{Kind: KindTrend, Side: SideUp}, "m1", f(65_000))

	s := tr.Settle("m2", nil)
	require.NotNil(t, s)
	assert.False(t, s.Won)
	assert.Nil(t, s.FinalPrice)
	assert.Equal(t, 1, tr.Losses)
}

func TestSettleOnlyOnRollover(t *testing.T) {
	var tr Tracker

	// First observation only arms the rollover detector.
	assert.Nil(t, tr.Settle("m1", f(65_000)))
	tr.MaybeEnter(Action{Kind: KindTrend, Side: SideUp}, "m1", f(65_000))

	// Same market: nothing settles.
	assert.Nil(t, tr.Settle("m1", f(65_500)))
	assert.NotNil(t, tr.Active())

	// Unknown market this cycle: nothing settles either.
	assert.Nil(t, tr.Settle("", f(65_500)))

	s := tr.Settle("m2", f(65_500))
	require.NotNil(t, s)
	assert.True(t, s.Won)
}

func TestSettleRolloverWithoutTrade(t *testing.T) {
	var tr Tracker
	tr.Settle("m1", f(65_000))

	assert.Nil(t, tr.Settle("m2", f(66_000)))
	assert.Equal(t, 0, tr.Wins+tr.Losses)
}

func TestWinRate(t *testing.T) {
	tr := Tracker{Wins: 3, Losses: 1}
	assert.InDelta(t, 75.0, tr.WinRate(), 1e-9)

	var empty Tracker
	assert.Equal(t, 0.0, empty.WinRate())
}

func TestActiveReturnsCopy(t *testing.T) {
	var tr Tracker
	tr.Settle("m1", f(65_000))
	tr.MaybeEnter(Action{Kind: KindTrend, Side: SideUp}, "m1", f(65_000))

	a := tr.Active()
	require.NotNil(t, a)
	a.PriceToBeat = 0

	assert.Equal(t, 65_000.0, tr.Active().PriceToBeat)
}
