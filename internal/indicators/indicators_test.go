package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krajekis/polysignal/internal/pricing"
)

func flatCandles(n int, price, volume float64) []pricing.Candle {
	out := make([]pricing.Candle, n)
	for i := range out {
		out[i] = pricing.Candle{
			OpenTime: int64(i) * 60_000,
			Open:     price, High: price, Low: price, Close: price,
			Volume: volume,
		}
	}
	return out
}

func TestVWAPSeriesAlignment(t *testing.T) {
	candles := []pricing.Candle{
		{High: 110, Low: 90, Close: 100, Volume: 10},
		{High: 220, Low: 180, Close: 200, Volume: 10},
	}

	series := VWAPSeries(candles)
	require.Len(t, series, 2)

	// First entry is its own typical price, second is the volume-weighted
	// mean of both typical prices.
	assert.InDelta(t, 100.0, series[0], 1e-9)
	assert.InDelta(t, 150.0, series[1], 1e-9)
}

func TestVWAPSeriesZeroVolume(t *testing.T) {
	candles := flatCandles(3, 50_000, 0)
	series := VWAPSeries(candles)

	require.Len(t, series, 3)
	for _, v := range series {
		assert.Equal(t, 50_000.0, v)
	}
}

func TestVWAPSeriesEmpty(t *testing.T) {
	assert.Nil(t, VWAPSeries(nil))
}

func TestRSIInsufficientData(t *testing.T) {
	closes := []float64{1, 2, 3}
	_, ok := RSI(closes, 14)
	assert.False(t, ok)

	// Exactly period+1 closes is the minimum.
	closes = make([]float64, 15)
	for i := range closes {
		closes[i] = float64(i)
	}
	_, ok = RSI(closes, 14)
	assert.True(t, ok)
}

func TestRSIAllGains(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	v, ok := RSI(closes, 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestRSIAllLosses(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}

	v, ok := RSI(closes, 14)
	require.True(t, ok)
	assert.InDelta(t, 0.0, v, 1e-9)
}

func TestRSIBalancedMoves(t *testing.T) {
	// Alternating +1/-1 gives equal average gain and loss, so RSI sits at 50.
	closes := make([]float64, 31)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		if i%2 == 1 {
			closes[i] = closes[i-1] + 1
		} else {
			closes[i] = closes[i-1] - 1
		}
	}

	v, ok := RSI(closes, 14)
	require.True(t, ok)
	assert.InDelta(t, 50.0, v, 2.0)
}

func TestRSISeriesLength(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i%3)
	}

	series := RSISeries(closes, 14)
	// Defined for prefixes of length 15..20.
	assert.Len(t, series, 6)
}

func TestSlopeLast(t *testing.T) {
	series := []float64{10, 20, 15, 40}

	v, ok := SlopeLast(series, 3)
	require.True(t, ok)
	assert.InDelta(t, 20.0, v, 1e-9) // 40 - 20

	_, ok = SlopeLast(series, 5)
	assert.False(t, ok)

	_, ok = SlopeLast(series, 1)
	assert.False(t, ok)
}

func TestMACDInsufficientData(t *testing.T) {
	closes := make([]float64, 34) // needs slow+signal = 35
	_, ok := MACD(closes, 12, 26, 9)
	assert.False(t, ok)
}

func TestMACDFlatSeries(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 50_000
	}

	res, ok := MACD(closes, 12, 26, 9)
	require.True(t, ok)
	assert.InDelta(t, 0.0, res.MACDLine, 1e-9)
	assert.InDelta(t, 0.0, res.SignalLine, 1e-9)
	assert.InDelta(t, 0.0, res.Histogram, 1e-9)
}

func TestMACDUptrendPositive(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 50_000 + float64(i)*10
	}

	res, ok := MACD(closes, 12, 26, 9)
	require.True(t, ok)

	// In a steady uptrend the fast EMA leads the slow EMA.
	assert.Greater(t, res.MACDLine, 0.0)
	assert.InDelta(t, res.MACDLine-res.SignalLine, res.Histogram, 1e-9)
}

func TestMACDInvalidPeriods(t *testing.T) {
	closes := make([]float64, 100)
	_, ok := MACD(closes, 26, 12, 9) // fast must be below slow
	assert.False(t, ok)
}
