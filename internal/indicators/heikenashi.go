package indicators

import "github.com/krajekis/polysignal/internal/pricing"

// Heiken Ashi candle colors.
const (
	ColorGreen = "green"
	ColorRed   = "red"
)

// HACandle is a smoothed synthetic candle.
type HACandle struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Color is green when the synthetic candle closed at or above its open.
func (h HACandle) Color() string {
	if h.Close >= h.Open {
		return ColorGreen
	}
	return ColorRed
}

// HeikenAshi transforms real candles into the smoothed series: each
// synthetic close is the OHLC mean of the real candle, each synthetic open
// is the mean of the previous synthetic open and close.
func HeikenAshi(candles []pricing.Candle) []HACandle {
	if len(candles) == 0 {
		return nil
	}

	out := make([]HACandle, len(candles))
	for i, c := range candles {
		haClose := (c.Open + c.High + c.Low + c.Close) / 4
		var haOpen float64
		if i == 0 {
			haOpen = (c.Open + c.Close) / 2
		} else {
			haOpen = (out[i-1].Open + out[i-1].Close) / 2
		}
		out[i] = HACandle{
			Open:  haOpen,
			High:  max3(c.High, haOpen, haClose),
			Low:   min3(c.Low, haOpen, haClose),
			Close: haClose,
		}
	}
	return out
}

// CountConsecutive returns the color of the most recent synthetic candle and
// the length of the unbroken trailing run of that color.
func CountConsecutive(ha []HACandle) (string, int) {
	if len(ha) == 0 {
		return "", 0
	}

	color := ha[len(ha)-1].Color()
	count := 0
	for i := len(ha) - 1; i >= 0; i-- {
		if ha[i].Color() != color {
			break
		}
		count++
	}
	return color, count
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
