package usecase

import (
	"sync"
	"testing"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	"DipWatch/internal/service/feed"
)

type fakeStream struct {
	mu       sync.Mutex
	subs     map[string]feed.Subscriber
	dials    int
	unsubbed int
}

func newFakeStream() *fakeStream {
	return &fakeStream{subs: make(map[string]feed.Subscriber)}
}

func (s *fakeStream) Subscribe(symbol string, cb feed.Subscriber) func() {
	s.mu.Lock()
	s.dials++
	s.subs[symbol] = cb
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, symbol)
		s.unsubbed++
		s.mu.Unlock()
	}
}

func (s *fakeStream) emit(symbol string, t *models.Tick) {
	s.mu.Lock()
	cb := s.subs[symbol]
	s.mu.Unlock()
	if cb != nil {
		cb(t)
	}
}

func newTestEngine(s *fakeStream) *TechnicalEngine {
	agg := NewCandleAggregator(500, nil)
	return NewTechnicalEngine(s, agg, []drepo.Timeframe{drepo.TF1s}, nil)
}

// one tick per second, each landing in its own 1s bucket
func feedTicks(s *fakeStream, symbol string, prices []float64) {
	for i, p := range prices {
		s.emit(symbol, &models.Tick{
			Symbol:    symbol,
			Price:     p,
			Volume:    1440,
			Timestamp: int64(i) * 1000,
		})
	}
}

func risingPrices(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)*0.5
	}
	return out
}

func TestSnapshotNilUntilMinimumPeriods(t *testing.T) {
	s := newFakeStream()
	e := newTestEngine(s)
	defer e.Close()
	e.Track("BTCUSDT")

	need := drepo.MinimumPeriods(drepo.TF1s)
	feedTicks(s, "BTCUSDT", risingPrices(need-1))
	if snap := e.TechnicalSnapshot("BTCUSDT", drepo.TF1s); snap != nil {
		t.Fatalf("snapshot must be nil with %d of %d candles", need-1, need)
	}

	s.emit("BTCUSDT", &models.Tick{Symbol: "BTCUSDT", Price: 200, Timestamp: int64(need-1) * 1000})
	snap := e.TechnicalSnapshot("BTCUSDT", drepo.TF1s)
	if snap == nil {
		t.Fatalf("snapshot must be computed once %d candles exist", need)
	}
	if snap.Price != 200 {
		t.Fatalf("snapshot price = %v, want last close 200", snap.Price)
	}
	if snap.Symbol != "BTCUSDT" || snap.Interval != "1s" {
		t.Fatalf("snapshot identity wrong: %s/%s", snap.Symbol, snap.Interval)
	}
}

func TestStatusReportsReadiness(t *testing.T) {
	s := newFakeStream()
	e := newTestEngine(s)
	defer e.Close()
	e.Track("BTCUSDT")

	feedTicks(s, "BTCUSDT", risingPrices(5))
	st := e.Status("BTCUSDT")
	if len(st) != 1 {
		t.Fatalf("status entries = %d, want 1", len(st))
	}
	if st[0].DataPoints != 5 || st[0].Ready {
		t.Fatalf("status = %+v, want 5 points and not ready", st[0])
	}

	feedTicks(s, "BTCUSDT", risingPrices(drepo.MinimumPeriods(drepo.TF1s)))
	st = e.Status("BTCUSDT")
	if !st[0].Ready {
		t.Fatalf("status = %+v, want ready", st[0])
	}
}

func TestTrackIsIdempotent(t *testing.T) {
	s := newFakeStream()
	e := newTestEngine(s)
	defer e.Close()

	e.Track("BTCUSDT")
	e.Track("BTCUSDT")
	if s.dials != 1 {
		t.Fatalf("stream subscriptions = %d, want 1", s.dials)
	}
	if got := e.Tracked(); len(got) != 1 || got[0] != "BTCUSDT" {
		t.Fatalf("tracked = %v", got)
	}
}

func TestUntrackKeepsCandleHistory(t *testing.T) {
	s := newFakeStream()
	e := newTestEngine(s)
	defer e.Close()
	e.Track("BTCUSDT")

	feedTicks(s, "BTCUSDT", risingPrices(10))
	e.Untrack("BTCUSDT")
	if s.unsubbed != 1 {
		t.Fatalf("unsubscribes = %d, want 1", s.unsubbed)
	}
	st := e.Status("BTCUSDT")
	if st[0].DataPoints != 10 {
		t.Fatalf("history after untrack = %d candles, want 10", st[0].DataPoints)
	}
}

func TestSubscribeToTechnicalsPushesOnEachTick(t *testing.T) {
	s := newFakeStream()
	e := newTestEngine(s)
	defer e.Close()

	var mu sync.Mutex
	var pushed []*models.IndicatorSnapshot
	unsub := e.SubscribeToTechnicals("BTCUSDT", drepo.TF1s, func(snap *models.IndicatorSnapshot) {
		mu.Lock()
		pushed = append(pushed, snap)
		mu.Unlock()
	})

	need := drepo.MinimumPeriods(drepo.TF1s)
	feedTicks(s, "BTCUSDT", risingPrices(need))
	mu.Lock()
	got := len(pushed)
	mu.Unlock()
	// nothing pushed while the series is warming up, one push per tick after
	if got != 1 {
		t.Fatalf("pushes = %d, want 1 (only the tick that completed the series)", got)
	}

	unsub()
	unsub() // no-op
	s.emit("BTCUSDT", &models.Tick{Symbol: "BTCUSDT", Price: 300, Timestamp: int64(need) * 1000})
	mu.Lock()
	got = len(pushed)
	mu.Unlock()
	if got != 1 {
		t.Fatalf("pushes after unsubscribe = %d, want still 1", got)
	}
}

func TestTradingSignalsFromSnapshot(t *testing.T) {
	s := newFakeStream()
	e := newTestEngine(s)
	defer e.Close()
	e.Track("BTCUSDT")

	if sig := e.TradingSignals("BTCUSDT", drepo.TF1s); sig != nil {
		t.Fatalf("signals must be nil before the series is ready")
	}

	feedTicks(s, "BTCUSDT", risingPrices(drepo.MinimumPeriods(drepo.TF1s)+10))
	sig := e.TradingSignals("BTCUSDT", drepo.TF1s)
	if sig == nil {
		t.Fatalf("signals must be computed once the series is ready")
	}
	if sig.Symbol != "BTCUSDT" || sig.Interval != "1s" {
		t.Fatalf("signal identity wrong: %s/%s", sig.Symbol, sig.Interval)
	}
	switch sig.Overall {
	case "bullish", "bearish", "neutral":
	default:
		t.Fatalf("overall = %q", sig.Overall)
	}
	if len(sig.Signals) == 0 {
		t.Fatalf("expected at least one rule vote")
	}
}
