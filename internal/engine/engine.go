package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/krajekis/polysignal/internal/config"
	"github.com/krajekis/polysignal/internal/indicators"
	"github.com/krajekis/polysignal/internal/pricing"
)

// Candle history depth fetched per cycle.
const (
	klines1mLimit = 240
	klines5mLimit = 200
)

// Snapshot is the per-cycle view of the prediction market. OK is false when
// no market was found or its payload was missing required fields; Reason
// says why.
type Snapshot struct {
	OK        bool
	Reason    string
	ID        string
	Slug      string
	EndDate   time.Time
	UpPrice   *float64
	DownPrice *float64
}

// CandleSource supplies pull-style exchange data once per cycle.
type CandleSource interface {
	Klines(ctx context.Context, interval string, limit int) ([]pricing.Candle, error)
	LastPrice(ctx context.Context) (float64, error)
}

// Snapshotter fetches the current prediction-market snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// TickAccessor reads a streaming source's most recent observation without
// blocking. Nil means the stream has nothing yet.
type TickAccessor func() *pricing.Tick

// Feeds wires the engine's collaborators.
type Feeds struct {
	Candles CandleSource
	Market  Snapshotter
	Oracle  pricing.OracleFetcher

	// SpotStream is the exchange trade stream accessor.
	SpotStream TickAccessor
	// OracleStreams are the streamed oracle accessors in priority order
	// (live market feed first, then the direct oracle stream).
	OracleStreams []TickAccessor
}

// SimStats is the cross-window simulation scoreboard snapshot.
type SimStats struct {
	TotalTrades int
	Wins        int
	Losses      int
	WinRate     float64
	InTrade     bool
	TradeSide   Side
}

// CycleRecord is the engine's per-cycle output. The field set is stable
// across cycles so display and journal consumers can append consistently.
type CycleRecord struct {
	Timestamp time.Time

	MarketOK         bool
	MarketID         string
	MarketSlug       string
	MarketReason     string
	RemainingMinutes float64
	ElapsedMinutes   float64

	SpotPrice    *float64
	CurrentPrice *float64
	OracleSource string

	LastClose *float64
	Delta1    *float64
	Delta3    *float64

	VWAP        *float64
	RSI         *float64
	RSISlope    *float64
	MACD        *indicators.MACDResult
	HeikenColor string
	HeikenCount int

	Regime       Regime
	RawUp        float64
	AdjustedUp   float64
	AdjustedDown float64
	MarketUp     *float64
	MarketDown   *float64
	EdgeUp       *float64
	EdgeDown     *float64

	Recommendation Recommendation
	Action         Action

	PriceToBeat *float64
	OpenedTrade *Trade
	Settlement  *Settlement
	Stats       SimStats

	Candles1m int
	Candles5m int
}

// Engine runs the decision pipeline. One cycle captures a consistent input
// set, computes every derived value, advances the anchor and simulation
// state, and returns the record. The engine owns all cross-cycle state and
// expects to be driven from a single loop.
type Engine struct {
	cfg        *config.Config
	feeds      Feeds
	classifier Classifier
	decider    DeciderPolicy
	anchor     PriceToBeat
	tracker    Tracker
	log        zerolog.Logger
}

// New builds an engine with the policy thresholds taken from configuration.
func New(cfg *config.Config, feeds Feeds, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:   cfg,
		feeds: feeds,
		classifier: Classifier{
			LockInMinutes:   cfg.LockInMinutes,
			LockInProb:      cfg.LockInProb,
			FinalizeMinutes: cfg.FinalizeMinutes,
			FinalizeProb:    cfg.FinalizeProb,
			ArbGapUSD:       cfg.ArbGapUSD,
			RSIOverbought:   cfg.RSIOverbought,
			RSIOversold:     cfg.RSIOversold,
		},
		decider: DeciderPolicy{
			EnterProbEarly: cfg.EnterProbEarly,
			EnterProbLate:  cfg.EnterProbLate,
		},
		log: logger,
	}
}

// Tracker exposes the simulation state machine, mainly for startup restore.
func (e *Engine) Tracker() *Tracker { return &e.tracker }

// RunCycle executes one full cycle. Any collaborator fetch failure skips
// the cycle: the error is returned for the caller to log and state is left
// unchanged, except that stream reads and the market snapshot degrade to
// nil/not-OK instead of failing.
func (e *Engine) RunCycle(ctx context.Context, now time.Time) (*CycleRecord, error) {
	// Streamed sources are read non-blockingly at cycle start so every
	// computation below sees one consistent input set.
	spotTick := readStream(e.feeds.SpotStream)
	oracleTicks := make([]*pricing.Tick, 0, len(e.feeds.OracleStreams))
	for _, acc := range e.feeds.OracleStreams {
		oracleTicks = append(oracleTicks, readStream(acc))
	}

	in, err := e.fetchInputs(ctx, oracleTicks)
	if err != nil {
		return nil, err
	}

	rec := &CycleRecord{Timestamp: now}

	// Market snapshot and window timing
	snap := in.snapshot
	rec.MarketOK = snap.OK
	rec.MarketID = snap.ID
	rec.MarketSlug = snap.Slug
	rec.MarketReason = snap.Reason
	rec.MarketUp = snap.UpPrice
	rec.MarketDown = snap.DownPrice

	elapsed, remaining := windowTiming(now, e.cfg.WindowMinutes)
	if snap.OK && !snap.EndDate.IsZero() {
		remaining = snap.EndDate.Sub(now).Minutes()
	}
	rec.ElapsedMinutes = elapsed
	rec.RemainingMinutes = remaining

	// Price reconciliation
	if in.oracle != nil {
		rec.CurrentPrice = &in.oracle.Price
		rec.OracleSource = in.oracle.Source
	}
	if spot := pricing.SpotPrice(spotTick, in.lastPrice); spot != nil {
		rec.SpotPrice = &spot.Price
	}

	// Indicators over closed 1m candles
	candles := in.candles1m
	closes := pricing.Closes(candles)
	rec.Candles1m = len(in.candles1m)
	rec.Candles5m = len(in.candles5m)

	if series := indicators.VWAPSeries(candles); len(series) > 0 {
		rec.VWAP = fptr(series[len(series)-1])
	}
	if v, ok := indicators.RSI(closes, e.cfg.RSIPeriod); ok {
		rec.RSI = fptr(v)
	}
	if slope, ok := indicators.SlopeLast(indicators.RSISeries(closes, e.cfg.RSIPeriod), 3); ok {
		rec.RSISlope = fptr(slope)
	}
	if m, ok := indicators.MACD(closes, e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal); ok {
		rec.MACD = &m
	}
	ha := indicators.HeikenAshi(candles)
	rec.HeikenColor, rec.HeikenCount = indicators.CountConsecutive(ha)

	if n := len(closes); n > 0 {
		rec.LastClose = fptr(closes[n-1])
		if n >= 2 {
			rec.Delta1 = fptr(closes[n-1] - closes[n-2])
		}
		if n >= 4 {
			rec.Delta3 = fptr(closes[n-1] - closes[n-4])
		}
	}

	// Scoring
	rec.Regime = DetectRegime(rec.SpotPrice, rec.VWAP, e.cfg.RegimeEpsilon)
	rec.RawUp = ScoreDirection(ScoreInputs{
		Price:         rec.SpotPrice,
		VWAP:          rec.VWAP,
		RSI:           rec.RSI,
		RSISlope:      rec.RSISlope,
		MACDHistogram: macdHistogram(rec.MACD),
		HeikenColor:   rec.HeikenColor,
		HeikenCount:   rec.HeikenCount,
	})

	aware := ApplyTimeAwareness(rec.RawUp, remaining, e.cfg.WindowMinutes, e.cfg.NeutralBand)
	rec.AdjustedUp = aware.AdjustedUp
	rec.AdjustedDown = aware.AdjustedDown

	edge := ComputeEdge(rec.AdjustedUp, rec.AdjustedDown, rec.MarketUp, rec.MarketDown)
	rec.EdgeUp = edge.Up
	rec.EdgeDown = edge.Down
	rec.Recommendation = e.decider.Decide(remaining, e.cfg.WindowMinutes, rec.AdjustedUp, rec.AdjustedDown)

	// Window rollover settles any open trade before this cycle's state
	// mutations, scored against the new window's first oracle print.
	rec.Settlement = e.tracker.Settle(rec.MarketID, rec.CurrentPrice)

	// Anchor the price to beat for the active window, then classify and
	// maybe open a position against that anchor.
	e.anchor.Observe(rec.MarketSlug, rec.CurrentPrice, now)
	rec.PriceToBeat = e.anchor.Value()

	rec.Action = e.classifier.Classify(ClassifyInputs{
		RSI:              rec.RSI,
		Delta1:           rec.Delta1,
		Delta3:           rec.Delta3,
		HeikenColor:      rec.HeikenColor,
		RemainingMinutes: fptr(remaining),
		ModelUp:          rec.AdjustedUp,
		ModelDown:        rec.AdjustedDown,
		MarketUp:         rec.MarketUp,
		MarketDown:       rec.MarketDown,
		SpotPrice:        rec.SpotPrice,
		CurrentPrice:     rec.CurrentPrice,
	})

	rec.OpenedTrade = e.tracker.MaybeEnter(rec.Action, rec.MarketID, rec.PriceToBeat)

	stats := SimStats{
		TotalTrades: e.tracker.TotalTrades,
		Wins:        e.tracker.Wins,
		Losses:      e.tracker.Losses,
		WinRate:     e.tracker.WinRate(),
	}
	if active := e.tracker.Active(); active != nil {
		stats.InTrade = true
		stats.TradeSide = active.Side
	}
	rec.Stats = stats

	return rec, nil
}

// cycleInputs is the jointly awaited pull data for one cycle.
type cycleInputs struct {
	candles1m []pricing.Candle
	candles5m []pricing.Candle
	lastPrice *float64
	oracle    *pricing.Tick
	snapshot  Snapshot
}

// fetchInputs issues the independent fetches concurrently and waits for all
// of them. The first hard failure fails the cycle; a missing market
// degrades to a not-OK snapshot instead.
func (e *Engine) fetchInputs(ctx context.Context, oracleTicks []*pricing.Tick) (*cycleInputs, error) {
	in := &cycleInputs{}
	errs := make([]error, 4)

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		in.candles1m, errs[0] = e.feeds.Candles.Klines(ctx, "1m", klines1mLimit)
	}()
	go func() {
		defer wg.Done()
		in.candles5m, errs[1] = e.feeds.Candles.Klines(ctx, "5m", klines5mLimit)
	}()
	go func() {
		defer wg.Done()
		var price float64
		if price, errs[2] = e.feeds.Candles.LastPrice(ctx); errs[2] == nil {
			in.lastPrice = &price
		}
	}()
	go func() {
		defer wg.Done()
		in.oracle, errs[3] = pricing.CurrentPrice(ctx, oracleTicks, e.feeds.Oracle)
	}()

	// Snapshot failures never kill the cycle: the market may simply not
	// exist yet, and edges degrade to nil either way.
	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		snap, err := e.feeds.Market.Snapshot(ctx)
		if err != nil {
			e.log.Warn().Err(err).Msg("market snapshot fetch failed")
			snap = Snapshot{OK: false, Reason: "fetch_failed"}
		}
		in.snapshot = snap
	}()

	wg.Wait()
	<-snapDone

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return in, nil
}

// windowTiming computes elapsed and remaining minutes of the wall-clock
// aligned window, the fallback when the market snapshot carries no endDate.
func windowTiming(now time.Time, windowMinutes float64) (elapsed, remaining float64) {
	window := time.Duration(windowMinutes * float64(time.Minute))
	if window <= 0 {
		return 0, 0
	}
	start := now.Truncate(window)
	elapsed = now.Sub(start).Minutes()
	return elapsed, windowMinutes - elapsed
}

func readStream(acc TickAccessor) *pricing.Tick {
	if acc == nil {
		return nil
	}
	return acc()
}

func macdHistogram(m *indicators.MACDResult) *float64 {
	if m == nil {
		return nil
	}
	return &m.Histogram
}

func fptr(v float64) *float64 { return &v }
