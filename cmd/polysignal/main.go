// Polysignal - Up/Down Prediction Signal Terminal for Polymarket
//
// Watches a crypto up/down prediction window and, every few seconds, fuses
// exchange candles, oracle price feeds and live market odds into one
// decision: a trading signal, a model probability with its edge over the
// market, and a simulated entry tracked across window rollovers.
//
// Reference: @krajekis
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/krajekis/polysignal/internal/config"
	"github.com/krajekis/polysignal/internal/dashboard"
	"github.com/krajekis/polysignal/internal/engine"
	"github.com/krajekis/polysignal/internal/feed"
	"github.com/krajekis/polysignal/internal/journal"
	"github.com/krajekis/polysignal/internal/notify"
)

const version = "1.0.0"

func main() {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("version", version).
		Str("asset", cfg.Asset).
		Str("symbol", cfg.Symbol).
		Float64("window_minutes", cfg.WindowMinutes).
		Msg("🚀 Polysignal starting...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Prediction journal (sqlite or postgres by DSN)
	jrnl, err := journal.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open prediction journal")
	}

	csvWriter := journal.NewCSVWriter(cfg.SignalsCSV)

	// 1. Binance client - candles plus real-time spot trade stream
	binanceClient := feed.NewBinanceClient(cfg.Symbol)
	if err := binanceClient.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start Binance client")
	}
	defer binanceClient.Stop()
	log.Info().Msg("📈 Binance WebSocket connected")

	// 2. Chainlink client - the oracle Polymarket resolves against
	chainlinkClient := feed.NewChainlinkClient()
	if err := chainlinkClient.Start(); err != nil {
		log.Warn().Err(err).Msg("⚠️ Failed to start Chainlink poller - on-demand fetch only")
	} else {
		log.Info().Msg("⛓️ Chainlink price feed connected (Polygon)")
	}
	defer chainlinkClient.Stop()

	// 3. Polymarket live price stream - fastest view of the oracle price
	liveStream := feed.NewPolymarketLiveStream(cfg.Asset)
	if err := liveStream.Start(); err != nil {
		log.Warn().Err(err).Msg("⚠️ Failed to connect Polymarket live stream - using Chainlink")
	} else {
		log.Info().Msg("📡 Polymarket live price stream connected")
	}
	defer liveStream.Stop()

	// 4. Polymarket market snapshots - odds and window metadata
	marketClient := feed.NewPolymarketClient(cfg.PolymarketAPIURL, cfg.Asset, int(cfg.WindowMinutes))

	// 5. Telegram alerts (optional)
	notifier, err := notify.New(cfg.TelegramToken, cfg.TelegramChatID, cfg.Asset)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Failed to connect Telegram - alerts disabled")
	} else if notifier == nil {
		log.Info().Msg("Telegram not configured, alerts disabled")
	}
	notifier.NotifyStartup()

	eng := engine.New(cfg, engine.Feeds{
		Candles:    binanceClient,
		Market:     marketClient,
		Oracle:     chainlinkClient.Fetch,
		SpotStream: binanceClient.Last,
		OracleStreams: []engine.TickAccessor{
			liveStream.Last,
			chainlinkClient.Last,
		},
	}, log.Logger)

	term := dashboard.New(cfg.Asset)

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			evt := log.Info().Float64("win_rate", eng.Tracker().WinRate())
			if stats, err := jrnl.GetStats(); err == nil {
				evt = evt.Int64("settled", stats.Total).Float64("accuracy", stats.Accuracy)
			}
			evt.Msg("👋 Polysignal stopped")
			return
		case now := <-ticker.C:
			rec, err := eng.RunCycle(ctx, now)
			if err != nil {
				log.Error().Err(err).Msg("Cycle failed")
				continue
			}

			term.Render(rec)

			if err := csvWriter.Append(rec); err != nil {
				log.Warn().Err(err).Msg("Failed to append signals CSV")
			}

			recordJournal(jrnl, rec)

			notifier.NotifyLockIn(rec)
			notifier.NotifyTradeOpened(rec.OpenedTrade)
			if rec.Settlement != nil {
				notifier.NotifySettlement(rec.Settlement, rec.Stats)
			}
		}
	}
}

// recordJournal persists entries and settlements from one cycle.
func recordJournal(jrnl *journal.Journal, rec *engine.CycleRecord) {
	if t := rec.OpenedTrade; t != nil {
		entryPrice := 0.0
		if rec.CurrentPrice != nil {
			entryPrice = *rec.CurrentPrice
		}
		modelProb := rec.AdjustedUp
		if t.Side == engine.SideDown {
			modelProb = rec.AdjustedDown
		}
		if err := jrnl.RecordEntry(t.MarketID, rec.MarketSlug, string(t.Side),
			t.PriceToBeat, entryPrice, modelProb, rec.Timestamp); err != nil {
			log.Warn().Err(err).Msg("Failed to journal entry")
		}
	}

	if s := rec.Settlement; s != nil {
		finalPrice := 0.0
		if s.FinalPrice != nil {
			finalPrice = *s.FinalPrice
		}
		if err := jrnl.RecordSettlement(s.Trade.MarketID, finalPrice, s.Won, rec.Timestamp); err != nil {
			log.Warn().Err(err).Msg("Failed to journal settlement")
		}
	}
}
