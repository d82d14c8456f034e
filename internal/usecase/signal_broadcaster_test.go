package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
)

type capturePublisher struct {
	mu   sync.Mutex
	sigs []*models.TradingSignals
}

func (p *capturePublisher) Publish(ctx context.Context, s *models.TradingSignals) error {
	p.mu.Lock()
	p.sigs = append(p.sigs, s)
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sigs)
}

func TestBroadcasterPublishesOnVerdictChange(t *testing.T) {
	s := newFakeStream()
	e := newTestEngine(s)
	defer e.Close()

	pub := &capturePublisher{}
	b := NewSignalBroadcaster(e, pub, []string{"BTCUSDT"}, drepo.TF1s, nil, nil)
	b.Start(context.Background())
	defer b.Stop()

	need := drepo.MinimumPeriods(drepo.TF1s)
	feedTicks(s, "BTCUSDT", risingPrices(need+5))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if pub.count() > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if pub.count() == 0 {
		t.Fatalf("no signal published after series became ready")
	}

	pub.mu.Lock()
	first := pub.sigs[0]
	pub.mu.Unlock()
	if first.Symbol != "BTCUSDT" || first.Interval != "1s" {
		t.Fatalf("signal = %+v", first)
	}
}

func TestBroadcasterSuppressesUnchangedVerdicts(t *testing.T) {
	s := newFakeStream()
	e := newTestEngine(s)
	defer e.Close()

	pub := &capturePublisher{}
	b := NewSignalBroadcaster(e, pub, []string{"BTCUSDT"}, drepo.TF1s, nil, nil)
	b.Start(context.Background())

	need := drepo.MinimumPeriods(drepo.TF1s)
	feedTicks(s, "BTCUSDT", risingPrices(need+20))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if pub.count() > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	b.Stop()

	// a steadily rising series settles on one verdict; ticks after that
	// must not re-publish the same overall/net pair
	got := pub.count()
	if got == 0 {
		t.Fatalf("expected at least one publish")
	}
	if got > 21 {
		t.Fatalf("publishes = %d, dedupe not working", got)
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	for i := 1; i < len(pub.sigs); i++ {
		prev, cur := pub.sigs[i-1], pub.sigs[i]
		if prev.Overall == cur.Overall && prev.Net == cur.Net {
			t.Fatalf("duplicate verdict published: %s/%d", cur.Overall, cur.Net)
		}
	}
}
