package market

import (
	"context"
	"sync/atomic"
	"testing"

	"DipWatch/internal/domain/models"
	pkgcache "DipWatch/pkg/cache"
)

func TestSharedSnapshotsServesFromStore(t *testing.T) {
	src := &countingSource{snap: &models.MarketSnapshot{Symbol: "BTCUSDT", LastPrice: 250}}
	store := pkgcache.NewMemoryCache()
	defer store.Close()

	ss := NewSharedSnapshots(src, store)
	for i := 0; i < 3; i++ {
		snap, err := ss.Snapshot(context.Background(), "BTCUSDT")
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if snap.Symbol != "BTCUSDT" || snap.LastPrice != 250 {
			t.Fatalf("snapshot = %+v", snap)
		}
	}
	if n := atomic.LoadInt32(&src.calls); n != 1 {
		t.Fatalf("upstream calls = %d, want 1", n)
	}
}

func TestSharedSnapshotsFallsThroughOnMiss(t *testing.T) {
	src := &countingSource{snap: &models.MarketSnapshot{Symbol: "ETHUSDT", LastPrice: 10}}
	store := pkgcache.NewMemoryCache()
	defer store.Close()

	ss := NewSharedSnapshots(src, store)
	if _, err := ss.Snapshot(context.Background(), "ETHUSDT"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if _, err := ss.Snapshot(context.Background(), "SOLUSDT"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if n := atomic.LoadInt32(&src.calls); n != 2 {
		t.Fatalf("upstream calls = %d, want 2", n)
	}
}
