package usecase

import (
	"fmt"
	"sync"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
)

// CandleAggregator folds tick streams into bounded, time-bucketed OHLCV
// series, one per symbol:timeframe pair. Per-series mutexes make concurrent
// OHLC updates for the same symbol atomic.
type CandleAggregator struct {
	mu       sync.RWMutex
	series   map[string]*candleSeries
	capacity int
	metrics  drepo.Metrics
}

type candleSeries struct {
	mu      sync.Mutex
	candles []models.Candle
}

// NewCandleAggregator creates an aggregator with the given per-series
// capacity (FIFO eviction once exceeded).
func NewCandleAggregator(capacity int, metrics drepo.Metrics) *CandleAggregator {
	if capacity <= 0 {
		capacity = 500
	}
	return &CandleAggregator{
		series:   make(map[string]*candleSeries),
		capacity: capacity,
		metrics:  metrics,
	}
}

func seriesKey(symbol string, tf drepo.Timeframe) string {
	return fmt.Sprintf("%s:%s", symbol, tf)
}

func (a *CandleAggregator) seriesFor(symbol string, tf drepo.Timeframe) *candleSeries {
	key := seriesKey(symbol, tf)
	a.mu.RLock()
	s, ok := a.series[key]
	a.mu.RUnlock()
	if ok {
		return s
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok = a.series[key]; ok {
		return s
	}
	s = &candleSeries{candles: make([]models.Candle, 0, a.capacity)}
	a.series[key] = s
	return s
}

// OnTick folds one tick into the series for (symbol, tf). A tick whose bucket
// is older than the current last bucket is dropped without touching history.
func (a *CandleAggregator) OnTick(symbol string, t *models.Tick, tf drepo.Timeframe) {
	tfMs := tf.DurationMs()
	if t == nil || tfMs <= 0 {
		return
	}
	bucketStart := t.Timestamp / tfMs * tfMs

	s := a.seriesFor(symbol, tf)
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.candles)
	if n > 0 {
		last := &s.candles[n-1]
		if bucketStart == last.BucketStart {
			if t.Price > last.High {
				last.High = t.Price
			}
			if t.Price < last.Low {
				last.Low = t.Price
			}
			last.Close = t.Price
			// per-minute share of the 24h volume figure; true trade volume
			// is unavailable on the ticker stream
			last.Volume += t.Volume / 1440
			last.TradeCount++
			return
		}
		if bucketStart < last.BucketStart {
			// late/out-of-order tick: no backfill, no correction
			if a.metrics != nil {
				a.metrics.RecordDroppedTick("late")
			}
			return
		}
	}

	s.candles = append(s.candles, models.Candle{
		BucketStart: bucketStart,
		Open:        t.Price,
		High:        t.Price,
		Low:         t.Price,
		Close:       t.Price,
		Volume:      t.Volume / 1440,
		TradeCount:  1,
	})
	if len(s.candles) > a.capacity {
		s.candles = s.candles[1:]
	}
}

// Series returns a copy of the candle series for (symbol, tf).
func (a *CandleAggregator) Series(symbol string, tf drepo.Timeframe) []models.Candle {
	key := seriesKey(symbol, tf)
	a.mu.RLock()
	s, ok := a.series[key]
	a.mu.RUnlock()
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

// Len returns the number of candles currently held for (symbol, tf).
func (a *CandleAggregator) Len(symbol string, tf drepo.Timeframe) int {
	key := seriesKey(symbol, tf)
	a.mu.RLock()
	s, ok := a.series[key]
	a.mu.RUnlock()
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.candles)
}

// Reset drops every series. Used when the engine rebuilds from a fresh feed.
func (a *CandleAggregator) Reset() {
	a.mu.Lock()
	a.series = make(map[string]*candleSeries)
	a.mu.Unlock()
}
