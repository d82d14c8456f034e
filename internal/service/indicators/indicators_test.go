package indicators

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}
	got, ok := SMA(prices, 3)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got != 4 {
		t.Fatalf("sma = %v, want 4", got)
	}
}

func TestSMAInsufficient(t *testing.T) {
	if _, ok := SMA([]float64{1, 2}, 3); ok {
		t.Fatalf("expected insufficient data")
	}
}

func TestSMARounding(t *testing.T) {
	got, ok := SMA([]float64{1, 1, 2}, 3)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got != 1.33 {
		t.Fatalf("sma = %v, want 1.33", got)
	}
}

func TestEMAPeriodOneIsLastValue(t *testing.T) {
	prices := []float64{10.123, 11.456, 9.789}
	got, ok := EMA(prices, 1)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got != prices[len(prices)-1] {
		t.Fatalf("ema(1) = %v, want %v", got, prices[len(prices)-1])
	}
}

func TestEMASeeding(t *testing.T) {
	got, ok := EMA([]float64{100}, 5)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got != 100 {
		t.Fatalf("ema = %v, want seed 100", got)
	}
}

func TestRSIAllGainsIs100(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	got, ok := RSI(prices, 14)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got != 100 {
		t.Fatalf("rsi = %v, want 100", got)
	}
}

func TestRSIRange(t *testing.T) {
	prices := []float64{44, 44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.1, 45.42, 45.84, 46.08, 45.89, 46.03, 45.61, 46.28}
	got, ok := RSI(prices, 14)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got < 0 || got > 100 {
		t.Fatalf("rsi %v out of range", got)
	}
	if got == 100 {
		t.Fatalf("rsi should not be 100 with losses in window")
	}
}

func TestRSIInsufficient(t *testing.T) {
	if _, ok := RSI(make([]float64, 14), 14); ok {
		t.Fatalf("need period+1 prices")
	}
}

func TestMACDSigns(t *testing.T) {
	// steadily rising series: fast EMA above slow EMA, MACD positive
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	got, ok := MACD(prices, 12, 26, 9)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.MACD <= 0 {
		t.Fatalf("macd = %v, want > 0 on rising series", got.MACD)
	}
	if r := Round4(got.MACD - got.Signal); r != got.Histogram {
		t.Fatalf("histogram %v != macd-signal %v", got.Histogram, r)
	}
}

func TestMACDInsufficient(t *testing.T) {
	if _, ok := MACD(make([]float64, 10), 12, 26, 9); ok {
		t.Fatalf("expected insufficient data")
	}
}

func TestBollingerFlatSeries(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 50
	}
	got, ok := Bollinger(prices, 20)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Upper != 50 || got.Middle != 50 || got.Lower != 50 || got.Bandwidth != 0 {
		t.Fatalf("flat series should collapse bands: %+v", got)
	}
}

func TestBollingerBands(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	got, ok := Bollinger(prices, 10)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Middle != 5.5 {
		t.Fatalf("middle = %v, want 5.5", got.Middle)
	}
	if got.Upper <= got.Middle || got.Lower >= got.Middle {
		t.Fatalf("band ordering broken: %+v", got)
	}
}

func TestStochasticClassification(t *testing.T) {
	tests := []struct {
		name   string
		close  float64
		signal string
	}{
		{"oversold", 1.5, "oversold"},
		{"overbought", 9.5, "overbought"},
		{"neutral", 5, "neutral"},
	}
	for _, tt := range tests {
		highs := []float64{10, 10, 10, 10, 10}
		lows := []float64{1, 1, 1, 1, 1}
		closes := []float64{5, 5, 5, 5, tt.close}
		got, ok := Stochastic(highs, lows, closes, 5)
		if !ok {
			t.Fatalf("%s: expected ok", tt.name)
		}
		if got.Signal != tt.signal {
			t.Fatalf("%s: signal = %q (k=%v), want %q", tt.name, got.Signal, got.K, tt.signal)
		}
	}
}

func TestStochasticFlatWindow(t *testing.T) {
	flat := []float64{5, 5, 5, 5, 5}
	got, ok := Stochastic(flat, flat, flat, 5)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.K != 50 {
		t.Fatalf("flat window k = %v, want 50", got.K)
	}
}

func TestATR(t *testing.T) {
	highs := []float64{12, 13, 14, 15}
	lows := []float64{8, 9, 10, 11}
	closes := []float64{10, 11, 12, 13}
	got, ok := ATR(highs, lows, closes, 3)
	if !ok {
		t.Fatalf("expected ok")
	}
	// each bar: high-low = 4, |high-prevClose| = 3, |low-prevClose| = 1
	if got != 4 {
		t.Fatalf("atr = %v, want 4", got)
	}
}

func TestMomentumBuckets(t *testing.T) {
	tests := []struct {
		last   float64
		signal string
	}{
		{103, "strong_bullish"},
		{101, "bullish"},
		{100.2, "neutral"},
		{99, "bearish"},
		{97, "strong_bearish"},
	}
	for _, tt := range tests {
		prices := []float64{100, 100, 100, 100, tt.last}
		got, ok := Momentum(prices, 4)
		if !ok {
			t.Fatalf("expected ok")
		}
		if got.Signal != tt.signal {
			t.Fatalf("last=%v: signal = %q (change=%v), want %q", tt.last, got.Signal, got.Change, tt.signal)
		}
	}
}

func TestTrendClassification(t *testing.T) {
	up := make([]float64, 20)
	for i := range up {
		up[i] = 100 + float64(i)*2
	}
	got, ok := Trend(up)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got != "strong_uptrend" {
		t.Fatalf("trend = %q, want strong_uptrend", got)
	}

	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 100
	}
	got, _ = Trend(flat)
	if got != "sideways" {
		t.Fatalf("trend = %q, want sideways", got)
	}
}

func TestVolatilityFlatSeriesIsVeryLow(t *testing.T) {
	prices := make([]float64, 21)
	for i := range prices {
		prices[i] = 100
	}
	got, ok := Volatility(prices, 20)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Annualized != 0 || got.Level != "very_low" {
		t.Fatalf("flat series vol = %+v", got)
	}
}

func TestVolatilityNonZero(t *testing.T) {
	prices := make([]float64, 21)
	for i := range prices {
		if i%2 == 0 {
			prices[i] = 100
		} else {
			prices[i] = 101
		}
	}
	got, ok := Volatility(prices, 20)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Annualized <= 0 || math.IsNaN(got.Annualized) {
		t.Fatalf("vol = %v, want > 0", got.Annualized)
	}
}

func TestSupportResistance(t *testing.T) {
	highs := []float64{110, 120, 115, 130, 112}
	lows := []float64{90, 95, 85, 99, 98}
	closes := []float64{100, 100, 100, 100, 100}
	got := SupportResistance(highs, lows, closes, 5)
	if len(got.Support) != 3 {
		t.Fatalf("support = %v, want 3 levels", got.Support)
	}
	if got.Support[0] != 85 || got.Support[1] != 90 || got.Support[2] != 95 {
		t.Fatalf("support = %v, want lowest lows first", got.Support)
	}
	if len(got.Resistance) != 3 {
		t.Fatalf("resistance = %v, want 3 levels", got.Resistance)
	}
	if got.Resistance[0] != 130 || got.Resistance[1] != 120 || got.Resistance[2] != 115 {
		t.Fatalf("resistance = %v, want highest highs first", got.Resistance)
	}
}
