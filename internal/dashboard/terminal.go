// Package dashboard renders the per-cycle record as a full-screen terminal
// frame. Pure display: every value it shows comes from the structured
// record, and nothing downstream reads anything back out of the rendering.
package dashboard

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/krajekis/polysignal/internal/engine"
)

const (
	// ANSI escape codes
	clearScreen = "\033[2J\033[H"

	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	gray   = "\033[90m"
	white  = "\033[97m"
)

const (
	frameWidth = 80
	labelWidth = 16
)

// Terminal renders cycle records to stdout.
type Terminal struct {
	asset string
	et    *time.Location
}

// New creates a renderer. The Eastern clock mirrors the exchange session
// tags traders actually watch.
func New(asset string) *Terminal {
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		et = time.UTC
	}
	return &Terminal{asset: asset, et: et}
}

// Render draws one full frame.
func (t *Terminal) Render(rec *engine.CycleRecord) {
	lines := []string{
		center(white + bold + "🚀 POLYSIGNAL TERMINAL" + reset),
		sepLine("="),
		kv("Market:", orDash(rec.MarketSlug)),
		kv("Time left:", t.timeLeft(rec.RemainingMinutes)),
		"",
		center(white + bold + "📊 SIMULATION PERFORMANCE" + reset),
		kv("Win Rate:", fmt.Sprintf("%s%.1f%%%s (%dW - %dL)", green, rec.Stats.WinRate, reset, rec.Stats.Wins, rec.Stats.Losses)),
		kv("Status:", t.simStatus(rec.Stats)),
		sepLine("─"),
		kv("ACTION:", t.actionLine(rec.Action)),
		kv("TA Predict:", fmt.Sprintf("%sLONG %.0f%%%s / %sSHORT %.0f%%%s",
			green, rec.AdjustedUp*100, reset, red, rec.AdjustedDown*100, reset)),
		kv("Heiken Ashi:", t.heikenLine(rec)),
		kv("RSI:", t.rsiLine(rec)),
		kv("Delta 1/3:", fmt.Sprintf("%s | %s", signedDelta(rec.Delta1, rec.LastClose), signedDelta(rec.Delta3, rec.LastClose))),
		kv("Regime:", string(rec.Regime)),
		sepLine("─"),
		kv("POLYMARKET:", t.marketLine(rec)),
		kv("PRICE TO BEAT:", dollars(rec.PriceToBeat, 0)),
		kv("CURRENT PRICE:", t.currentLine(rec)),
		sepLine("─"),
		kv(t.asset+" Binance:", dollars(rec.SpotPrice, 0)),
		kv("Price Gap:", t.gapLine(rec)),
		sepLine("─"),
		kv("ET Time:", fmt.Sprintf("%s | %s", time.Now().In(t.et).Format("15:04:05"), session(time.Now().UTC()))),
	}

	fmt.Fprint(os.Stdout, clearScreen+strings.Join(lines, "\n")+"\n")
}

func (t *Terminal) timeLeft(mins float64) string {
	color := green
	if mins < 5 {
		color = red
	}
	total := int(math.Max(0, mins*60))
	return fmt.Sprintf("%s%02d:%02d%s", color, total/60, total%60, reset)
}

func (t *Terminal) simStatus(s engine.SimStats) string {
	if s.InTrade {
		return fmt.Sprintf("%sIN TRADE (%s)%s", green, s.TradeSide, reset)
	}
	return gray + "SCANNING..." + reset
}

func (t *Terminal) actionLine(a engine.Action) string {
	color := cyan
	switch {
	case a.Kind == engine.KindChoppy || a.Kind == engine.KindFinalized:
		color = yellow
	case a.Side == engine.SideUp:
		color = green
	case a.Side == engine.SideDown:
		color = red
	}
	return color + bold + a.Label() + reset
}

func (t *Terminal) heikenLine(rec *engine.CycleRecord) string {
	if rec.HeikenColor == "" {
		return gray + "-" + reset
	}
	color := red
	if rec.HeikenColor == "green" {
		color = green
	}
	return fmt.Sprintf("%s%s x%d%s", color, rec.HeikenColor, rec.HeikenCount, reset)
}

func (t *Terminal) rsiLine(rec *engine.CycleRecord) string {
	if rec.RSI == nil {
		return gray + "-" + reset
	}
	color := gray
	if rec.RSISlope != nil {
		if *rec.RSISlope > 0 {
			color = green
		} else if *rec.RSISlope < 0 {
			color = red
		}
	}
	return fmt.Sprintf("%s%.1f%s", color, *rec.RSI, reset)
}

func (t *Terminal) marketLine(rec *engine.CycleRecord) string {
	return fmt.Sprintf("%s↑ UP %s¢%s  |  %s↓ DOWN %s¢%s",
		green, cents(rec.MarketUp), reset, red, cents(rec.MarketDown), reset)
}

func (t *Terminal) currentLine(rec *engine.CycleRecord) string {
	if rec.CurrentPrice == nil {
		return gray + "-" + reset
	}
	delta := gray + "-" + reset
	if rec.PriceToBeat != nil {
		d := *rec.CurrentPrice - *rec.PriceToBeat
		sign := "+"
		if d < 0 {
			sign = "-"
		}
		delta = fmt.Sprintf("%s$%.2f", sign, math.Abs(d))
	}
	return fmt.Sprintf("$%.2f (%s)", *rec.CurrentPrice, delta)
}

func (t *Terminal) gapLine(rec *engine.CycleRecord) string {
	if rec.SpotPrice == nil || rec.CurrentPrice == nil {
		return gray + "-" + reset
	}
	return fmt.Sprintf("%.2f USD", *rec.SpotPrice-*rec.CurrentPrice)
}

// session tags the active trading session by UTC hour.
func session(now time.Time) string {
	h := now.Hour()
	inAsia := h < 8
	inEurope := h >= 7 && h < 16
	inUS := h >= 13 && h < 22

	switch {
	case inEurope && inUS:
		return "Europe/US overlap"
	case inAsia && inEurope:
		return "Asia/Europe overlap"
	case inAsia:
		return "Asia"
	case inEurope:
		return "Europe"
	case inUS:
		return "US"
	default:
		return "Off-hours"
	}
}

func kv(label, value string) string {
	if visibleLen(label) < labelWidth {
		label += strings.Repeat(" ", labelWidth-visibleLen(label))
	}
	return label + value
}

func sepLine(ch string) string {
	return white + strings.Repeat(ch, frameWidth) + reset
}

func center(text string) string {
	visible := visibleLen(text)
	if visible >= frameWidth {
		return text
	}
	left := (frameWidth - visible) / 2
	return strings.Repeat(" ", left) + text
}

// visibleLen measures printable width, skipping ANSI escape sequences.
func visibleLen(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		case r == '\033':
			inEscape = true
		default:
			n++
		}
	}
	return n
}

func orDash(s string) string {
	if s == "" {
		return gray + "-" + reset
	}
	return s
}

func dollars(v *float64, decimals int) string {
	if v == nil {
		return gray + "-" + reset
	}
	return fmt.Sprintf("$%.*f", decimals, *v)
}

func cents(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f", *v*100)
}

func signedDelta(delta, base *float64) string {
	if delta == nil || base == nil || *base == 0 {
		return gray + "-" + reset
	}
	sign := ""
	if *delta > 0 {
		sign = "+"
	} else if *delta < 0 {
		sign = "-"
	}
	pct := math.Abs(*delta) / math.Abs(*base) * 100
	return fmt.Sprintf("%s$%.2f, %s%.2f%%", sign, math.Abs(*delta), sign, pct)
}
