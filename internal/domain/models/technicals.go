package models

import "time"

// MACDValue holds the MACD line, its signal line and the histogram.
type MACDValue struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerValue holds Bollinger band levels plus relative bandwidth.
type BollingerValue struct {
	Upper     float64 `json:"upper"`
	Middle    float64 `json:"middle"`
	Lower     float64 `json:"lower"`
	Bandwidth float64 `json:"bandwidth"` // 4*stddev/middle*100
}

// StochasticValue holds %K with its oversold/overbought classification.
type StochasticValue struct {
	K      float64 `json:"k"`
	Signal string  `json:"signal"` // "oversold" | "overbought" | "neutral"
}

// MomentumValue holds percentage change with a qualitative bucket.
type MomentumValue struct {
	Change float64 `json:"change"` // percent
	Signal string  `json:"signal"` // strong_bullish..strong_bearish
}

// VolatilityValue holds annualized volatility with a qualitative bucket.
type VolatilityValue struct {
	Annualized float64 `json:"annualized"`
	Level      string  `json:"level"` // very_low..extremely_high
}

// SupportResistance holds nearby support and resistance price levels.
type SupportResistance struct {
	Support    []float64 `json:"support"`
	Resistance []float64 `json:"resistance"`
}

// IndicatorSnapshot is a computed, immutable view of all indicators for one
// symbol/timeframe at one point in time. Recomputed on demand, never mutated.
type IndicatorSnapshot struct {
	Symbol     string            `json:"symbol"`
	Interval   string            `json:"interval"`
	Price      float64           `json:"price"`
	SMAFast    float64           `json:"sma_fast"`
	SMASlow    float64           `json:"sma_slow"`
	SMA20      float64           `json:"sma_20"`
	EMA        float64           `json:"ema"`
	RSI        float64           `json:"rsi"`
	MACD       MACDValue         `json:"macd"`
	Bollinger  BollingerValue    `json:"bollinger"`
	Stochastic StochasticValue   `json:"stochastic"`
	ATR        float64           `json:"atr"`
	Momentum   MomentumValue     `json:"momentum"`
	Volatility VolatilityValue   `json:"volatility"`
	Trend      string            `json:"trend"`
	Levels     SupportResistance `json:"levels"`
	Timestamp  time.Time         `json:"timestamp"`
}

// SignalVote is one independent rule's verdict contributing to the overall call.
type SignalVote struct {
	Rule      string `json:"rule"`
	Direction string `json:"direction"` // "bullish" | "bearish"
	Reason    string `json:"reason"`
}

// TradingSignals is the discrete verdict derived from one IndicatorSnapshot.
type TradingSignals struct {
	Symbol     string       `json:"symbol"`
	Interval   string       `json:"interval"`
	Overall    string       `json:"overall"` // "bullish" | "bearish" | "neutral"
	Net        int          `json:"net"`
	Strength   int          `json:"strength"`   // 0..100
	Confidence string       `json:"confidence"` // "high" | "medium" | "low"
	Signals    []SignalVote `json:"signals"`
	Timestamp  time.Time    `json:"timestamp"`
}

// IntervalStatus reports readiness of one symbol/interval series.
type IntervalStatus struct {
	Symbol     string `json:"symbol"`
	Interval   string `json:"interval"`
	DataPoints int    `json:"data_points"`
	Required   int    `json:"required"`
	Ready      bool   `json:"ready"`
}

// MarketSnapshot is a cached 24h market overview fetched from the REST API.
type MarketSnapshot struct {
	Symbol      string    `json:"symbol"`
	LastPrice   float64   `json:"last_price"`
	Change24h   float64   `json:"change_24h"` // percent
	High24h     float64   `json:"high_24h"`
	Low24h      float64   `json:"low_24h"`
	Volume24h   float64   `json:"volume_24h"`
	RetrievedAt time.Time `json:"retrieved_at"`
}
