package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"DipWatch/internal/domain/models"
	icache "DipWatch/internal/service/cache"
)

func TestRestSourceParsesTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"BTCUSDT","lastPrice":"42000.50","priceChangePercent":"-3.25","highPrice":"44000","lowPrice":"41000","volume":"12345.6"}`))
	}))
	defer srv.Close()

	s := NewRestSource(WithBaseURL(srv.URL))
	snap, err := s.Snapshot(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.LastPrice != 42000.50 || snap.Change24h != -3.25 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.High24h != 44000 || snap.Low24h != 41000 || snap.Volume24h != 12345.6 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.RetrievedAt.IsZero() {
		t.Fatalf("RetrievedAt not set")
	}
}

func TestRestSourceRejectsBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","lastPrice":"not a number"}`))
	}))
	defer srv.Close()

	s := NewRestSource(WithBaseURL(srv.URL))
	if _, err := s.Snapshot(context.Background(), "BTCUSDT"); err == nil {
		t.Fatalf("expected error on unparsable price")
	}
}

type countingSource struct {
	calls int32
	snap  *models.MarketSnapshot
}

func (s *countingSource) Snapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.snap, nil
}

func TestCachedSnapshotsFetchesOnce(t *testing.T) {
	src := &countingSource{snap: &models.MarketSnapshot{Symbol: "BTCUSDT", LastPrice: 100}}
	c := icache.NewTTLCache()
	c.Close()
	defer c.Clear()

	cs := NewCachedSnapshots(src, c, nil)
	for i := 0; i < 5; i++ {
		snap, err := cs.Snapshot(context.Background(), "BTCUSDT")
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if snap.LastPrice != 100 {
			t.Fatalf("snapshot = %+v", snap)
		}
	}
	if n := atomic.LoadInt32(&src.calls); n != 1 {
		t.Fatalf("upstream calls = %d, want 1", n)
	}

	// a different symbol is a different cache key
	if _, err := cs.Snapshot(context.Background(), "ETHUSDT"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if n := atomic.LoadInt32(&src.calls); n != 2 {
		t.Fatalf("upstream calls = %d, want 2", n)
	}
}
