package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"DipWatch/internal/domain/models"
)

type fakeArchive struct {
	mu      sync.Mutex
	batches [][]*models.Tick
	fails   int
}

func (a *fakeArchive) Init(ctx context.Context) error { return nil }

func (a *fakeArchive) Archive(ctx context.Context, t *models.Tick) error {
	return a.ArchiveBatch(ctx, []*models.Tick{t})
}

func (a *fakeArchive) ArchiveBatch(ctx context.Context, ticks []*models.Tick) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fails > 0 {
		a.fails--
		return errors.New("archive down")
	}
	cp := make([]*models.Tick, len(ticks))
	copy(cp, ticks)
	a.batches = append(a.batches, cp)
	return nil
}

func (a *fakeArchive) Health(ctx context.Context) error { return nil }
func (a *fakeArchive) Close() error                     { return nil }

func (a *fakeArchive) total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, b := range a.batches {
		n += len(b)
	}
	return n
}

func tk(symbol string, ts int64) *models.Tick {
	return &models.Tick{Symbol: symbol, Price: 100, Volume: 1, Timestamp: ts}
}

func TestPipelineFlushesOnBatchSize(t *testing.T) {
	a := &fakeArchive{}
	p := NewArchivePipeline(a, nil, WithBatch(3, time.Hour))
	p.Start(context.Background())

	for i := 1; i <= 3; i++ {
		p.Enqueue(tk("BTCUSDT", int64(i)))
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if a.total() == 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if a.total() != 3 {
		t.Fatalf("archived = %d, want 3", a.total())
	}
	p.Stop()
}

func TestPipelineFlushesOnStop(t *testing.T) {
	a := &fakeArchive{}
	p := NewArchivePipeline(a, nil, WithBatch(100, time.Hour))
	p.Start(context.Background())

	p.Enqueue(tk("BTCUSDT", 1))
	p.Enqueue(tk("ETHUSDT", 2))
	p.Stop()

	if a.total() != 2 {
		t.Fatalf("archived after stop = %d, want 2", a.total())
	}
}

func TestPipelineRetriesFailedBatch(t *testing.T) {
	a := &fakeArchive{fails: 2}
	p := NewArchivePipeline(a, nil, WithBatch(1, time.Hour))
	p.Start(context.Background())

	p.Enqueue(tk("BTCUSDT", 1))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a.total() == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if a.total() != 1 {
		t.Fatalf("archived = %d, want 1 after retries", a.total())
	}
	p.Stop()
}

func TestPipelineRejectsInvalidTicks(t *testing.T) {
	a := &fakeArchive{}
	p := NewArchivePipeline(a, nil, WithBatch(1, time.Hour))
	p.Start(context.Background())

	p.Enqueue(nil)
	p.Enqueue(&models.Tick{Symbol: "", Timestamp: 1})
	p.Enqueue(&models.Tick{Symbol: "BTCUSDT", Timestamp: 0})
	p.Enqueue(&models.Tick{Symbol: "BTCUSDT", Price: -1, Timestamp: 1})
	p.Stop()

	if a.total() != 0 {
		t.Fatalf("archived = %d, want 0 invalid ticks", a.total())
	}
}
