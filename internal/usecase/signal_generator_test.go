package usecase

import (
	"testing"

	"DipWatch/internal/domain/models"
)

func TestGenerateSignalsAllBullish(t *testing.T) {
	snap := &models.IndicatorSnapshot{
		Symbol:   "BTCUSDT",
		Interval: "1m",
		Price:    101,
		RSI:      25,
		MACD:     models.MACDValue{Histogram: 0.5},
		SMAFast:  100,
		SMASlow:  95,
		SMA20:    98,
	}
	got := GenerateSignals(snap)
	if got.Overall != "bullish" {
		t.Fatalf("overall = %q, want bullish", got.Overall)
	}
	if got.Net != 4 {
		t.Fatalf("net = %d, want 4", got.Net)
	}
	if got.Confidence != "high" {
		t.Fatalf("confidence = %q, want high", got.Confidence)
	}
	if got.Strength != 100 {
		t.Fatalf("strength = %d, want 100", got.Strength)
	}
	if len(got.Signals) != 4 {
		t.Fatalf("votes = %d, want 4", len(got.Signals))
	}
}

func TestGenerateSignalsAllBearish(t *testing.T) {
	snap := &models.IndicatorSnapshot{
		Price:   90,
		RSI:     75,
		MACD:    models.MACDValue{Histogram: -0.2},
		SMAFast: 95,
		SMASlow: 100,
		SMA20:   98,
	}
	got := GenerateSignals(snap)
	if got.Overall != "bearish" || got.Net != -4 || got.Confidence != "high" {
		t.Fatalf("got %+v", got)
	}
}

func TestGenerateSignalsNeutral(t *testing.T) {
	// one bullish (price above SMA20), one bearish (death cross): net 0
	snap := &models.IndicatorSnapshot{
		Price:   101,
		RSI:     50,
		MACD:    models.MACDValue{Histogram: 0},
		SMAFast: 95,
		SMASlow: 100,
		SMA20:   100,
	}
	got := GenerateSignals(snap)
	if got.Overall != "neutral" {
		t.Fatalf("overall = %q, want neutral", got.Overall)
	}
	if got.Net != 0 {
		t.Fatalf("net = %d, want 0", got.Net)
	}
	if got.Confidence != "low" {
		t.Fatalf("confidence = %q, want low", got.Confidence)
	}
	if got.Strength != 0 {
		t.Fatalf("strength = %d, want 0", got.Strength)
	}
}

func TestGenerateSignalsMediumConfidence(t *testing.T) {
	// two bullish votes, zero bearish: net 2
	snap := &models.IndicatorSnapshot{
		Price:   101,
		RSI:     50,
		MACD:    models.MACDValue{Histogram: 0.1},
		SMAFast: 100,
		SMASlow: 100,
		SMA20:   100,
	}
	got := GenerateSignals(snap)
	if got.Overall != "bullish" || got.Net != 2 {
		t.Fatalf("net = %d overall = %q", got.Net, got.Overall)
	}
	if got.Confidence != "medium" {
		t.Fatalf("confidence = %q, want medium", got.Confidence)
	}
	if got.Strength != 50 {
		t.Fatalf("strength = %d, want 50", got.Strength)
	}
}

func TestGenerateSignalsNilSnapshot(t *testing.T) {
	if got := GenerateSignals(nil); got != nil {
		t.Fatalf("nil snapshot must yield nil signals")
	}
}
