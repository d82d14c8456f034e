package usecase

import (
	"time"

	"DipWatch/internal/domain/models"
)

// GenerateSignals converts one indicator snapshot into a discrete verdict.
// Stateless and deterministic: independent rules each cast one vote, the net
// vote decides the overall call.
func GenerateSignals(snap *models.IndicatorSnapshot) *models.TradingSignals {
	if snap == nil {
		return nil
	}

	var votes []models.SignalVote
	vote := func(rule, direction, reason string) {
		votes = append(votes, models.SignalVote{Rule: rule, Direction: direction, Reason: reason})
	}

	if snap.RSI < 30 {
		vote("rsi", "bullish", "RSI oversold")
	} else if snap.RSI > 70 {
		vote("rsi", "bearish", "RSI overbought")
	}

	if snap.MACD.Histogram > 0 {
		vote("macd", "bullish", "MACD histogram positive")
	} else if snap.MACD.Histogram < 0 {
		vote("macd", "bearish", "MACD histogram negative")
	}

	if snap.SMAFast > snap.SMASlow {
		vote("sma_cross", "bullish", "golden cross")
	} else if snap.SMAFast < snap.SMASlow {
		vote("sma_cross", "bearish", "death cross")
	}

	if snap.Price > snap.SMA20 {
		vote("price_vs_sma", "bullish", "price above SMA20")
	} else if snap.Price < snap.SMA20 {
		vote("price_vs_sma", "bearish", "price below SMA20")
	}

	net := 0
	for _, v := range votes {
		if v.Direction == "bullish" {
			net++
		} else {
			net--
		}
	}

	overall := "neutral"
	switch {
	case net >= 2:
		overall = "bullish"
	case net <= -2:
		overall = "bearish"
	}

	abs := net
	if abs < 0 {
		abs = -abs
	}
	strength := abs * 25
	if strength > 100 {
		strength = 100
	}

	confidence := "low"
	switch {
	case abs >= 3:
		confidence = "high"
	case abs >= 2:
		confidence = "medium"
	}

	return &models.TradingSignals{
		Symbol:     snap.Symbol,
		Interval:   snap.Interval,
		Overall:    overall,
		Net:        net,
		Strength:   strength,
		Confidence: confidence,
		Signals:    votes,
		Timestamp:  time.Now(),
	}
}
