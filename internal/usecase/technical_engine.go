package usecase

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	"DipWatch/internal/service/feed"
	"DipWatch/internal/service/indicators"
	applogger "DipWatch/pkg/logger"
)

// TickStream is the connection manager surface the engine consumes.
type TickStream interface {
	Subscribe(symbol string, callback feed.Subscriber) func()
}

// SnapshotWatcher receives a freshly computed snapshot after every tick on a
// watched symbol/interval pair. Called synchronously from the feed goroutine.
type SnapshotWatcher func(*models.IndicatorSnapshot)

// TechnicalEngine folds live ticks into per-timeframe candle series and
// computes indicator snapshots and trading signals on demand. Snapshots are
// never stored; each request recomputes from the in-memory candles.
type TechnicalEngine struct {
	mu         sync.RWMutex
	stream     TickStream
	agg        *CandleAggregator
	timeframes []drepo.Timeframe
	tracked    map[string]func()
	watchers   map[string]map[int]SnapshotWatcher
	nextID     int
	logger     *applogger.Logger
	now        func() time.Time
}

func NewTechnicalEngine(stream TickStream, agg *CandleAggregator, timeframes []drepo.Timeframe, logger *applogger.Logger) *TechnicalEngine {
	if len(timeframes) == 0 {
		timeframes = drepo.AllTimeframes()
	}
	return &TechnicalEngine{
		stream:     stream,
		agg:        agg,
		timeframes: timeframes,
		tracked:    make(map[string]func()),
		watchers:   make(map[string]map[int]SnapshotWatcher),
		logger:     logger,
		now:        time.Now,
	}
}

// Track subscribes the engine to the symbol's tick stream. Tracking the same
// symbol twice is a no-op.
func (e *TechnicalEngine) Track(symbol string) {
	e.mu.Lock()
	if _, ok := e.tracked[symbol]; ok {
		e.mu.Unlock()
		return
	}
	// reserve the slot before dialing so concurrent Track calls stay single
	e.tracked[symbol] = func() {}
	e.mu.Unlock()

	unsub := e.stream.Subscribe(symbol, func(t *models.Tick) {
		e.onTick(symbol, t)
	})

	e.mu.Lock()
	e.tracked[symbol] = unsub
	e.mu.Unlock()

	if e.logger != nil {
		e.logger.Info("tracking symbol", applogger.String("symbol", symbol))
	}
}

// Untrack drops the tick subscription. Accumulated candles are kept so a
// re-track resumes with history instead of a cold series.
func (e *TechnicalEngine) Untrack(symbol string) {
	e.mu.Lock()
	unsub, ok := e.tracked[symbol]
	if ok {
		delete(e.tracked, symbol)
	}
	e.mu.Unlock()
	if ok {
		unsub()
	}
}

// Tracked returns the tracked symbols in sorted order.
func (e *TechnicalEngine) Tracked() []string {
	e.mu.RLock()
	out := make([]string, 0, len(e.tracked))
	for s := range e.tracked {
		out = append(out, s)
	}
	e.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Ingest feeds one tick directly, bypassing the stream subscription. Used by
// the Kafka tick source where subscription is handled broker-side.
func (e *TechnicalEngine) Ingest(t *models.Tick) {
	if t == nil || t.Symbol == "" {
		return
	}
	e.onTick(t.Symbol, t)
}

func (e *TechnicalEngine) onTick(symbol string, t *models.Tick) {
	for _, tf := range e.timeframes {
		e.agg.OnTick(symbol, t, tf)
	}
	e.pushSnapshots(symbol)
}

func watcherKey(symbol string, tf drepo.Timeframe) string {
	return fmt.Sprintf("%s|%s", symbol, tf)
}

// SubscribeToTechnicals registers a watcher that is pushed a new snapshot
// after every tick on the symbol. The symbol is tracked automatically. The
// returned func removes the watcher; calling it more than once is safe.
func (e *TechnicalEngine) SubscribeToTechnicals(symbol string, tf drepo.Timeframe, w SnapshotWatcher) func() {
	e.Track(symbol)

	key := watcherKey(symbol, tf)
	e.mu.Lock()
	if e.watchers[key] == nil {
		e.watchers[key] = make(map[int]SnapshotWatcher)
	}
	e.nextID++
	id := e.nextID
	e.watchers[key][id] = w
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			if ws, ok := e.watchers[key]; ok {
				delete(ws, id)
				if len(ws) == 0 {
					delete(e.watchers, key)
				}
			}
			e.mu.Unlock()
		})
	}
}

func (e *TechnicalEngine) pushSnapshots(symbol string) {
	for _, tf := range e.timeframes {
		key := watcherKey(symbol, tf)
		e.mu.RLock()
		ws := make([]SnapshotWatcher, 0, len(e.watchers[key]))
		for _, w := range e.watchers[key] {
			ws = append(ws, w)
		}
		e.mu.RUnlock()
		if len(ws) == 0 {
			continue
		}
		snap := e.TechnicalSnapshot(symbol, tf)
		if snap == nil {
			continue
		}
		for _, w := range ws {
			w(snap)
		}
	}
}

// TechnicalSnapshot recomputes all indicators for the symbol/timeframe from
// the current candle series. Returns nil until the series holds the minimum
// number of candles the timeframe's slowest indicator needs.
func (e *TechnicalEngine) TechnicalSnapshot(symbol string, tf drepo.Timeframe) *models.IndicatorSnapshot {
	candles := e.agg.Series(symbol, tf)
	n := len(candles)
	if n < drepo.MinimumPeriods(tf) {
		return nil
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	p := drepo.PeriodsFor(tf)
	snap := &models.IndicatorSnapshot{
		Symbol:    symbol,
		Interval:  string(tf),
		Price:     closes[n-1],
		Trend:     "sideways",
		Timestamp: e.now().UTC(),
	}

	if v, ok := indicators.SMA(closes, drepo.CapPeriod(p.SMAFast, n)); ok {
		snap.SMAFast = v
	}
	if v, ok := indicators.SMA(closes, drepo.CapPeriod(p.SMASlow, n)); ok {
		snap.SMASlow = v
	}
	if v, ok := indicators.SMA(closes, drepo.CapPeriod(p.SMA, n)); ok {
		snap.SMA20 = v
	}
	if v, ok := indicators.EMA(closes, drepo.CapPeriod(p.EMA, n)); ok {
		snap.EMA = indicators.Round2(v)
	}
	if v, ok := indicators.RSI(closes, drepo.CapPeriod(p.RSI, n)); ok {
		snap.RSI = v
	}
	if v, ok := indicators.MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal); ok {
		snap.MACD = models.MACDValue{MACD: v.MACD, Signal: v.Signal, Histogram: v.Histogram}
	}
	if v, ok := indicators.Bollinger(closes, drepo.CapPeriod(p.Bollinger, n)); ok {
		snap.Bollinger = models.BollingerValue{Upper: v.Upper, Middle: v.Middle, Lower: v.Lower, Bandwidth: v.Bandwidth}
	}
	if v, ok := indicators.Stochastic(highs, lows, closes, drepo.CapPeriod(p.Stochastic, n)); ok {
		snap.Stochastic = models.StochasticValue{K: v.K, Signal: v.Signal}
	}
	if v, ok := indicators.ATR(highs, lows, closes, drepo.CapPeriod(p.ATR, n)); ok {
		snap.ATR = v
	}
	if v, ok := indicators.Momentum(closes, drepo.CapPeriod(p.Momentum, n)); ok {
		snap.Momentum = models.MomentumValue{Change: v.Change, Signal: v.Signal}
	}
	if v, ok := indicators.Volatility(closes, drepo.CapPeriod(p.Volatility, n)); ok {
		snap.Volatility = models.VolatilityValue{Annualized: v.Annualized, Level: v.Level}
	}
	if v, ok := indicators.Trend(closes); ok {
		snap.Trend = v
	}
	lv := indicators.SupportResistance(highs, lows, closes, drepo.CapPeriod(p.Lookback, n))
	snap.Levels = models.SupportResistance{Support: lv.Support, Resistance: lv.Resistance}

	return snap
}

// TradingSignals derives the discrete verdict for the symbol/timeframe, or
// nil when the series is not ready yet.
func (e *TechnicalEngine) TradingSignals(symbol string, tf drepo.Timeframe) *models.TradingSignals {
	return GenerateSignals(e.TechnicalSnapshot(symbol, tf))
}

// Status reports per-timeframe readiness for one symbol.
func (e *TechnicalEngine) Status(symbol string) []models.IntervalStatus {
	out := make([]models.IntervalStatus, 0, len(e.timeframes))
	for _, tf := range e.timeframes {
		have := e.agg.Len(symbol, tf)
		need := drepo.MinimumPeriods(tf)
		out = append(out, models.IntervalStatus{
			Symbol:     symbol,
			Interval:   string(tf),
			DataPoints: have,
			Required:   need,
			Ready:      have >= need,
		})
	}
	return out
}

// Close drops every tick subscription. Candle series stay in memory.
func (e *TechnicalEngine) Close() {
	e.mu.Lock()
	unsubs := make([]func(), 0, len(e.tracked))
	for s, u := range e.tracked {
		unsubs = append(unsubs, u)
		delete(e.tracked, s)
	}
	e.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}
