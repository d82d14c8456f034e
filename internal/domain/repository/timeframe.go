package repository

import "time"

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF1s  Timeframe = "1s"
	TF5s  Timeframe = "5s"
	TF15s Timeframe = "15s"
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// timeframeMillis maps each supported timeframe to its exact bucket duration.
var timeframeMillis = map[Timeframe]int64{
	TF1s:  1_000,
	TF5s:  5_000,
	TF15s: 15_000,
	TF1m:  60_000,
	TF5m:  300_000,
	TF15m: 900_000,
	TF1h:  3_600_000,
	TF4h:  14_400_000,
	TF1d:  86_400_000,
}

// AllTimeframes lists every supported timeframe, shortest first.
func AllTimeframes() []Timeframe {
	return []Timeframe{TF1s, TF5s, TF15s, TF1m, TF5m, TF15m, TF1h, TF4h, TF1d}
}

// DurationMs returns the bucket duration in milliseconds, or 0 if unsupported.
func (tf Timeframe) DurationMs() int64 {
	return timeframeMillis[tf]
}

// Duration returns the bucket duration, or 0 if unsupported.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(timeframeMillis[tf]) * time.Millisecond
}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	_, ok := timeframeMillis[tf]
	return ok
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1m }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// Periods is the indicator period table for one timeframe. Shorter timeframes
// carry proportionally smaller periods so they warm up faster.
type Periods struct {
	SMAFast    int
	SMASlow    int
	SMA        int // the SMA20-equivalent used by price-vs-mean signals
	EMA        int
	RSI        int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	Bollinger  int
	Stochastic int
	ATR        int
	Momentum   int
	Volatility int
	Lookback   int // support/resistance window
}

var periodTables = map[Timeframe]Periods{
	TF1s:  {SMAFast: 5, SMASlow: 15, SMA: 10, EMA: 8, RSI: 7, MACDFast: 6, MACDSlow: 13, MACDSignal: 5, Bollinger: 10, Stochastic: 7, ATR: 7, Momentum: 5, Volatility: 10, Lookback: 25},
	TF5s:  {SMAFast: 5, SMASlow: 15, SMA: 10, EMA: 8, RSI: 7, MACDFast: 6, MACDSlow: 13, MACDSignal: 5, Bollinger: 10, Stochastic: 7, ATR: 7, Momentum: 5, Volatility: 10, Lookback: 25},
	TF15s: {SMAFast: 7, SMASlow: 20, SMA: 14, EMA: 10, RSI: 10, MACDFast: 8, MACDSlow: 17, MACDSignal: 6, Bollinger: 14, Stochastic: 10, ATR: 10, Momentum: 7, Volatility: 14, Lookback: 35},
	TF1m:  {SMAFast: 10, SMASlow: 30, SMA: 20, EMA: 12, RSI: 14, MACDFast: 12, MACDSlow: 26, MACDSignal: 9, Bollinger: 20, Stochastic: 14, ATR: 14, Momentum: 10, Volatility: 20, Lookback: 50},
	TF5m:  {SMAFast: 10, SMASlow: 30, SMA: 20, EMA: 12, RSI: 14, MACDFast: 12, MACDSlow: 26, MACDSignal: 9, Bollinger: 20, Stochastic: 14, ATR: 14, Momentum: 10, Volatility: 20, Lookback: 50},
	TF15m: {SMAFast: 10, SMASlow: 30, SMA: 20, EMA: 12, RSI: 14, MACDFast: 12, MACDSlow: 26, MACDSignal: 9, Bollinger: 20, Stochastic: 14, ATR: 14, Momentum: 10, Volatility: 20, Lookback: 50},
	TF1h:  {SMAFast: 10, SMASlow: 30, SMA: 20, EMA: 12, RSI: 14, MACDFast: 12, MACDSlow: 26, MACDSignal: 9, Bollinger: 20, Stochastic: 14, ATR: 14, Momentum: 10, Volatility: 20, Lookback: 50},
	TF4h:  {SMAFast: 10, SMASlow: 30, SMA: 20, EMA: 12, RSI: 14, MACDFast: 12, MACDSlow: 26, MACDSignal: 9, Bollinger: 20, Stochastic: 14, ATR: 14, Momentum: 10, Volatility: 20, Lookback: 50},
	TF1d:  {SMAFast: 10, SMASlow: 30, SMA: 20, EMA: 12, RSI: 14, MACDFast: 12, MACDSlow: 26, MACDSignal: 9, Bollinger: 20, Stochastic: 14, ATR: 14, Momentum: 10, Volatility: 20, Lookback: 50},
}

// PeriodsFor returns the indicator period table for tf.
func PeriodsFor(tf Timeframe) Periods {
	if p, ok := periodTables[tf]; ok {
		return p
	}
	return periodTables[DefaultTimeframe()]
}

// MinimumPeriods is the number of candles required before a snapshot can be
// computed for tf. Driven by the slowest indicator in the table.
func MinimumPeriods(tf Timeframe) int {
	p := PeriodsFor(tf)
	min := p.MACDSlow + p.MACDSignal
	if p.SMASlow > min {
		min = p.SMASlow
	}
	if p.Bollinger > min {
		min = p.Bollinger
	}
	// RSI needs period+1 closes for period deltas
	if p.RSI+1 > min {
		min = p.RSI + 1
	}
	return min
}

// CapPeriod bounds period so an indicator never reads beyond what the buffer
// can support: floor(0.8 * available).
func CapPeriod(period, available int) int {
	cap := available * 8 / 10
	if period > cap {
		return cap
	}
	return period
}
