package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
)

type readResult struct {
	tick *models.Tick
	err  error
}

type fakeConn struct {
	ch     chan readResult
	done   chan struct{}
	closed sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{ch: make(chan readResult, 16), done: make(chan struct{})}
}

func (c *fakeConn) ReadTick() (*models.Tick, error) {
	select {
	case r := <-c.ch:
		return r.tick, r.err
	case <-c.done:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.closed.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) push(t *models.Tick)  { c.ch <- readResult{tick: t} }
func (c *fakeConn) pushMalformed()       { c.ch <- readResult{err: drepo.ErrMalformedTick} }
func (c *fakeConn) fail()                { c.ch <- readResult{err: errors.New("stream broken")} }

type fakeFeed struct {
	mu       sync.Mutex
	conns    []*fakeConn
	failNext int
}

func (f *fakeFeed) Dial(ctx context.Context, symbol string) (drepo.TickConn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return nil, errors.New("dial refused")
	}
	c := newFakeConn()
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeFeed) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

func (f *fakeFeed) lastConn() *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		return nil
	}
	return f.conns[len(f.conns)-1]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestReconnectDelaySchedule(t *testing.T) {
	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, w := range want {
		if got := ReconnectDelay(i + 1); got != w {
			t.Fatalf("attempt %d: delay = %v, want %v", i+1, got, w)
		}
	}
}

func TestSubscribeFansOutToAllSubscribers(t *testing.T) {
	f := &fakeFeed{}
	m := NewManager(f, nil, nil)
	defer m.Close()

	var mu sync.Mutex
	var got []string
	record := func(name string) Subscriber {
		return func(tk *models.Tick) {
			mu.Lock()
			got = append(got, fmt.Sprintf("%s:%v", name, tk.Price))
			mu.Unlock()
		}
	}

	m.Subscribe("BTCUSDT", record("a"))
	m.Subscribe("BTCUSDT", record("b"))

	waitFor(t, time.Second, func() bool { return m.Status("BTCUSDT") == StateConnected })
	if f.dialCount() != 1 {
		t.Fatalf("dials = %d, want one shared connection", f.dialCount())
	}

	f.lastConn().push(&models.Tick{Symbol: "BTCUSDT", Price: 100, Timestamp: 1})
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})
}

func TestMalformedPayloadDroppedAndCounted(t *testing.T) {
	f := &fakeFeed{}
	m := NewManager(f, nil, nil)
	defer m.Close()

	var mu sync.Mutex
	ticks := 0
	m.Subscribe("BTCUSDT", func(*models.Tick) {
		mu.Lock()
		ticks++
		mu.Unlock()
	})
	waitFor(t, time.Second, func() bool { return m.Status("BTCUSDT") == StateConnected })

	c := f.lastConn()
	c.pushMalformed()
	c.push(&models.Tick{Symbol: "BTCUSDT", Price: 101, Timestamp: 2})

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ticks == 1
	})
	if m.ParseDrops() != 1 {
		t.Fatalf("parse drops = %d, want 1", m.ParseDrops())
	}
	if m.Status("BTCUSDT") != StateConnected {
		t.Fatalf("stream must continue after malformed payload, state = %s", m.Status("BTCUSDT"))
	}
}

func TestDisconnectSchedulesReconnect(t *testing.T) {
	f := &fakeFeed{}
	m := NewManager(f, nil, nil)
	defer m.Close()

	m.Subscribe("BTCUSDT", func(*models.Tick) {})
	waitFor(t, time.Second, func() bool { return m.Status("BTCUSDT") == StateConnected })

	f.lastConn().fail()
	waitFor(t, time.Second, func() bool { return m.Status("BTCUSDT") == StateReconnectWaiting })

	// first retry fires after 1s and succeeds
	waitFor(t, 2*time.Second, func() bool { return m.Status("BTCUSDT") == StateConnected })
	if f.dialCount() != 2 {
		t.Fatalf("dials = %d, want 2 after reconnect", f.dialCount())
	}
}

func TestLastUnsubscribeCancelsReconnect(t *testing.T) {
	f := &fakeFeed{}
	m := NewManager(f, nil, nil)
	defer m.Close()

	unsub := m.Subscribe("BTCUSDT", func(*models.Tick) {})
	waitFor(t, time.Second, func() bool { return m.Status("BTCUSDT") == StateConnected })

	f.lastConn().fail()
	waitFor(t, time.Second, func() bool { return m.Status("BTCUSDT") == StateReconnectWaiting })

	unsub()
	if m.Status("BTCUSDT") != StateIdle {
		t.Fatalf("state = %s, want fresh Idle after teardown", m.Status("BTCUSDT"))
	}

	time.Sleep(1200 * time.Millisecond)
	if f.dialCount() != 1 {
		t.Fatalf("reconnect timer must not fire after last unsubscribe, dials = %d", f.dialCount())
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	f := &fakeFeed{}
	m := NewManager(f, nil, nil)
	defer m.Close()

	unsubA := m.Subscribe("BTCUSDT", func(*models.Tick) {})
	m.Subscribe("BTCUSDT", func(*models.Tick) {})
	waitFor(t, time.Second, func() bool { return m.Status("BTCUSDT") == StateConnected })

	unsubA()
	unsubA() // no-op
	if n := m.SubscriberCount("BTCUSDT"); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}
	if m.Status("BTCUSDT") != StateConnected {
		t.Fatalf("connection must stay up while subscribers remain")
	}
}

func TestResubscribeAfterCloseRestarts(t *testing.T) {
	f := &fakeFeed{}
	m := NewManager(f, nil, nil)
	defer m.Close()

	unsub := m.Subscribe("BTCUSDT", func(*models.Tick) {})
	waitFor(t, time.Second, func() bool { return m.Status("BTCUSDT") == StateConnected })
	unsub()

	m.Subscribe("BTCUSDT", func(*models.Tick) {})
	waitFor(t, time.Second, func() bool { return m.Status("BTCUSDT") == StateConnected })
	if f.dialCount() != 2 {
		t.Fatalf("dials = %d, want a fresh connection after close", f.dialCount())
	}
}

func TestConnectEventsNotified(t *testing.T) {
	f := &fakeFeed{}
	m := NewManager(f, nil, nil)
	defer m.Close()

	var mu sync.Mutex
	var events []Event
	dispose := m.OnEvent(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})
	defer dispose()

	m.Subscribe("BTCUSDT", func(*models.Tick) {})
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1 && events[0].Type == "connected"
	})
}
