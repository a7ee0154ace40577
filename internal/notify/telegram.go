// Package notify sends Telegram alerts for simulated trades and lock-in
// signals. All methods are nil-safe so the caller never guards on whether
// Telegram is configured.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/krajekis/polysignal/internal/engine"
)

// Notifier pushes alerts to a single Telegram chat.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	asset  string

	lastLockedSlug string
}

// New connects to the Telegram API. Returns (nil, nil) when token or chat ID
// is missing so the pipeline runs without alerting.
func New(token string, chatID int64, asset string) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot connected")

	return &Notifier{api: api, chatID: chatID, asset: asset}, nil
}

// NotifyStartup announces that the signal pipeline is live.
func (n *Notifier) NotifyStartup() {
	if n == nil {
		return
	}

	text := fmt.Sprintf(`🟢 *Polysignal Online*

%s up/down signal pipeline active.`, n.asset)

	n.sendMarkdown(text)
}

// NotifyTradeOpened alerts on a new simulated entry.
func (n *Notifier) NotifyTradeOpened(trade *engine.Trade) {
	if n == nil || trade == nil {
		return
	}

	var emoji string
	if trade.Side == engine.SideUp {
		emoji = "🟢"
	} else {
		emoji = "🔴"
	}

	text := fmt.Sprintf(`%s *SIM TRADE OPENED*

*Direction:* %s
*Price to beat:* $%.2f

_Market: %s_`,
		emoji, trade.Side, trade.PriceToBeat, trade.MarketID)

	n.sendMarkdown(text)
}

// NotifySettlement alerts on a resolved simulated trade.
func (n *Notifier) NotifySettlement(s *engine.Settlement, stats engine.SimStats) {
	if n == nil || s == nil {
		return
	}

	var result string
	if s.Won {
		result = "✅ WIN"
	} else {
		result = "❌ LOSS"
	}

	finalPrice := "unknown"
	if s.FinalPrice != nil {
		finalPrice = fmt.Sprintf("$%.2f", *s.FinalPrice)
	}

	text := fmt.Sprintf(`📈 *SIM TRADE SETTLED*

*Result:* %s
*Direction:* %s
*Price to beat:* $%.2f
*Final price:* %s

*Record:* %dW - %dL (%.1f%%)`,
		result, s.Trade.Side, s.Trade.PriceToBeat, finalPrice,
		stats.Wins, stats.Losses, stats.WinRate)

	n.sendMarkdown(text)
}

// NotifyLockIn alerts once per market when the outcome is near certain.
func (n *Notifier) NotifyLockIn(rec *engine.CycleRecord) {
	if n == nil || rec == nil || rec.Action.Kind != engine.KindLocked {
		return
	}
	if rec.MarketSlug == "" || rec.MarketSlug == n.lastLockedSlug {
		return
	}
	n.lastLockedSlug = rec.MarketSlug

	text := fmt.Sprintf(`🔒 *LOCK-IN: %s*

%.1f min left, market prices the outcome as decided.

_Market: %s_`,
		rec.Action.Side, rec.RemainingMinutes, rec.MarketSlug)

	n.sendMarkdown(text)
}

func (n *Notifier) sendMarkdown(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "Markdown"
	msg.DisableWebPagePreview = true
	if _, err := n.api.Send(msg); err != nil {
		log.Warn().Err(err).Msg("Failed to send Telegram message")
	}
}
