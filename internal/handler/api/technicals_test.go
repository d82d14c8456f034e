package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	icache "DipWatch/internal/service/cache"
	"DipWatch/internal/service/feed"
	"DipWatch/internal/usecase"

	"github.com/labstack/echo/v4"
)

type stubStream struct{ cb feed.Subscriber }

func (s *stubStream) Subscribe(symbol string, cb feed.Subscriber) func() {
	s.cb = cb
	return func() {}
}

type stubSnapshots struct{ err error }

func (s *stubSnapshots) Snapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.MarketSnapshot{Symbol: symbol, LastPrice: 42}, nil
}

func newTestHandler(t *testing.T, opts ...HandlerOption) (*echo.Echo, *stubStream, *usecase.TechnicalEngine) {
	t.Helper()
	stream := &stubStream{}
	agg := usecase.NewCandleAggregator(500, nil)
	engine := usecase.NewTechnicalEngine(stream, agg, []drepo.Timeframe{drepo.TF1s}, nil)
	t.Cleanup(engine.Close)

	cache := icache.NewTTLCache()
	cache.Close()

	h := NewTechnicalsHandler(nil, engine, &stubSnapshots{}, cache, opts...)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, stream, engine
}

func fill(stream *stubStream, engine *usecase.TechnicalEngine, symbol string, n int) {
	engine.Track(symbol)
	for i := 0; i < n; i++ {
		stream.cb(&models.Tick{
			Symbol:    symbol,
			Price:     100 + float64(i),
			Volume:    1,
			Timestamp: int64(i) * 1000,
		})
	}
}

func doGet(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// the response envelope carries the effective status; transport is always 200
func envelopeStatus(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp.Status
}

func TestTechnicalsEndpoint(t *testing.T) {
	e, stream, engine := newTestHandler(t)
	fill(stream, engine, "BTCUSDT", drepo.MinimumPeriods(drepo.TF1s))

	rec := doGet(e, "/api/technicals?symbol=BTCUSDT&interval=1s")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data models.IndicatorSnapshot `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Symbol != "BTCUSDT" || resp.Data.Interval != "1s" {
		t.Fatalf("snapshot = %+v", resp.Data)
	}
}

func TestTechnicalsNotReady(t *testing.T) {
	e, stream, engine := newTestHandler(t)
	fill(stream, engine, "BTCUSDT", 3)

	rec := doGet(e, "/api/technicals?symbol=BTCUSDT&interval=1s")
	if got := envelopeStatus(t, rec); got != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 while warming up", got)
	}
}

func TestTechnicalsMissingSymbol(t *testing.T) {
	e, _, _ := newTestHandler(t)
	rec := doGet(e, "/api/technicals?interval=1s")
	if got := envelopeStatus(t, rec); got != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", got)
	}
}

func TestSignalsEndpoint(t *testing.T) {
	e, stream, engine := newTestHandler(t)
	fill(stream, engine, "BTCUSDT", drepo.MinimumPeriods(drepo.TF1s)+5)

	rec := doGet(e, "/api/signals?symbol=BTCUSDT&interval=1s")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data models.TradingSignals `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Overall == "" || len(resp.Data.Signals) == 0 {
		t.Fatalf("signals = %+v", resp.Data)
	}
}

func TestStatusEndpoint(t *testing.T) {
	e, stream, engine := newTestHandler(t)
	fill(stream, engine, "BTCUSDT", 5)

	rec := doGet(e, "/api/status?symbol=BTCUSDT")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Data []models.IntervalStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].DataPoints != 5 {
		t.Fatalf("status = %+v", resp.Data)
	}
}

func TestMarketSnapshotEndpoint(t *testing.T) {
	e, _, _ := newTestHandler(t)
	rec := doGet(e, "/api/market/snapshot?symbol=BTCUSDT")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCacheEndpoints(t *testing.T) {
	e, _, _ := newTestHandler(t)

	rec := doGet(e, "/api/cache/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/cache/invalidate?category=market_snapshot", nil)
	inv := httptest.NewRecorder()
	e.ServeHTTP(inv, req)
	if inv.Code != http.StatusOK {
		t.Fatalf("invalidate status = %d, body = %s", inv.Code, inv.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	e, _, _ := newTestHandler(t)
	rec := doGet(e, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRateLimitRejectsBursts(t *testing.T) {
	e, _, _ := newTestHandler(t, WithRateLimit(1, 2))

	codes := make(map[int]int)
	for i := 0; i < 10; i++ {
		rec := doGet(e, "/api/cache/stats")
		codes[envelopeStatus(t, rec)]++
	}
	if codes[http.StatusTooManyRequests] == 0 {
		t.Fatalf("expected some 429s, got %v", codes)
	}
	if codes[http.StatusOK] == 0 {
		t.Fatalf("expected some 200s, got %v", codes)
	}
}
