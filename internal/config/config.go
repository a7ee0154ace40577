package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the signal engine
type Config struct {
	// Trading Asset
	Symbol string // Binance symbol, e.g. BTCUSDT
	Asset  string // Polymarket asset prefix, e.g. BTC

	// Mode
	Debug bool

	// Polling
	PollInterval  time.Duration
	WindowMinutes float64 // prediction window length (15m markets)

	// Indicator periods
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int

	// Regime / probability policy
	RegimeEpsilon float64 // dollar band around VWAP for the "at-vwap" label
	NeutralBand   float64 // raw probabilities within 0.5±band are never amplified

	// Strategy thresholds
	LockInMinutes   float64 // lock-in rule fires at or under this many minutes left
	LockInProb      float64 // near-certainty threshold for lock-in
	FinalizeMinutes float64
	FinalizeProb    float64
	ArbGapUSD       float64 // absolute spot-vs-oracle gap that flags an exchange lead
	RSIOverbought   float64
	RSIOversold     float64
	EnterProbEarly  float64 // decider threshold with most of the window left
	EnterProbLate   float64 // decider threshold near settlement

	// Polymarket API
	PolymarketAPIURL string

	// Persistence
	DatabasePath string
	SignalsCSV   string

	// Telegram (optional)
	TelegramToken  string
	TelegramChatID int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Symbol: getEnv("SYMBOL", "BTCUSDT"),
		Asset:  getEnv("ASSET", "BTC"),
		Debug:  getEnvBool("DEBUG", false),

		PollInterval:  getEnvDuration("POLL_INTERVAL", 5*time.Second),
		WindowMinutes: getEnvFloat("WINDOW_MINUTES", 15),

		RSIPeriod:  getEnvInt("RSI_PERIOD", 14),
		MACDFast:   getEnvInt("MACD_FAST", 12),
		MACDSlow:   getEnvInt("MACD_SLOW", 26),
		MACDSignal: getEnvInt("MACD_SIGNAL", 9),

		RegimeEpsilon: getEnvFloat("REGIME_EPSILON", 10),
		NeutralBand:   getEnvFloat("NEUTRAL_BAND", 0.05),

		LockInMinutes:   getEnvFloat("LOCKIN_MINUTES", 2.0),
		LockInProb:      getEnvFloat("LOCKIN_PROB", 0.98),
		FinalizeMinutes: getEnvFloat("FINALIZE_MINUTES", 0.5),
		FinalizeProb:    getEnvFloat("FINALIZE_PROB", 0.95),
		ArbGapUSD:       getEnvFloat("ARB_GAP_USD", 25),
		RSIOverbought:   getEnvFloat("RSI_OVERBOUGHT", 70),
		RSIOversold:     getEnvFloat("RSI_OVERSOLD", 30),
		EnterProbEarly:  getEnvFloat("ENTER_PROB_EARLY", 0.62),
		EnterProbLate:   getEnvFloat("ENTER_PROB_LATE", 0.55),

		PolymarketAPIURL: getEnv("POLYMARKET_API_URL", "https://gamma-api.polymarket.com"),

		DatabasePath: getEnv("DATABASE_PATH", "data/polysignal.db"),
		SignalsCSV:   getEnv("SIGNALS_CSV", "logs/signals.csv"),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if cfg.MACDFast >= cfg.MACDSlow {
		return nil, fmt.Errorf("MACD_FAST (%d) must be below MACD_SLOW (%d)", cfg.MACDFast, cfg.MACDSlow)
	}
	if cfg.WindowMinutes <= 0 {
		return nil, fmt.Errorf("WINDOW_MINUTES must be positive")
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
