// Package feed owns one logical streaming subscription per symbol,
// multiplexing ticks to subscribers and reconnecting with capped backoff.
package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	applogger "DipWatch/pkg/logger"
)

// State is the lifecycle state of one per-symbol connection.
type State string

const (
	StateIdle             State = "idle"
	StateConnecting       State = "connecting"
	StateConnected        State = "connected"
	StateReconnectWaiting State = "reconnect_waiting"
	StateClosed           State = "closed"
)

const (
	baseReconnectDelay = time.Second
	maxReconnectDelay  = 30 * time.Second
)

// ReconnectDelay returns the backoff before reconnect attempt n (1-based):
// min(1s * 2^(n-1), 30s).
func ReconnectDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := baseReconnectDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxReconnectDelay {
			return maxReconnectDelay
		}
	}
	if d > maxReconnectDelay {
		return maxReconnectDelay
	}
	return d
}

// Subscriber receives every tick for its symbol, synchronously.
type Subscriber func(*models.Tick)

// Event is a best-effort connect/disconnect notification.
type Event struct {
	Symbol string
	Type   string // "connected" | "disconnected"
}

// EventHandler observes connection events.
type EventHandler func(Event)

type subscription struct {
	symbol      string
	state       State
	attempts    int
	subscribers map[int]Subscriber
	nextID      int
	conn        drepo.TickConn
	retryTimer  *time.Timer
}

// Manager multiplexes per-symbol upstream streams to callback subscribers.
// The first subscriber for a symbol opens the connection; the last
// unsubscribe closes it and cancels any pending reconnect.
type Manager struct {
	mu   sync.Mutex
	subs map[string]*subscription

	events      map[int]EventHandler
	nextEventID int

	feed        drepo.MarketFeed
	metrics     drepo.Metrics
	logger      *applogger.Logger
	dialTimeout time.Duration

	parseDrops int64
}

// ManagerOption configures Manager.
type ManagerOption func(*Manager)

// WithDialTimeout bounds each upstream connection attempt.
func WithDialTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.dialTimeout = d
		}
	}
}

// NewManager creates a connection manager over the given market feed.
func NewManager(feed drepo.MarketFeed, metrics drepo.Metrics, logger *applogger.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		subs:        make(map[string]*subscription),
		events:      make(map[int]EventHandler),
		feed:        feed,
		metrics:     metrics,
		logger:      logger,
		dialTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers callback for symbol ticks and returns an idempotent
// unsubscribe func. The first subscriber transitions Idle -> Connecting.
func (m *Manager) Subscribe(symbol string, callback Subscriber) func() {
	m.mu.Lock()

	sub, ok := m.subs[symbol]
	if !ok {
		sub = &subscription{
			symbol:      symbol,
			state:       StateIdle,
			subscribers: make(map[int]Subscriber),
		}
		m.subs[symbol] = sub
	}
	id := sub.nextID
	sub.nextID++
	sub.subscribers[id] = callback

	startConnect := sub.state == StateIdle
	if startConnect {
		sub.state = StateConnecting
	}
	m.mu.Unlock()

	if startConnect {
		go m.connect(sub)
	}

	var once sync.Once
	return func() {
		once.Do(func() { m.unsubscribe(symbol, id) })
	}
}

func (m *Manager) unsubscribe(symbol string, id int) {
	m.mu.Lock()
	sub, ok := m.subs[symbol]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(sub.subscribers, id)
	if len(sub.subscribers) > 0 {
		m.mu.Unlock()
		return
	}

	// last subscriber left: tear everything down
	if sub.retryTimer != nil {
		sub.retryTimer.Stop()
		sub.retryTimer = nil
	}
	conn := sub.conn
	sub.conn = nil
	sub.state = StateClosed
	delete(m.subs, symbol) // re-subscribing restarts from Idle
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if m.logger != nil {
		m.logger.Info("feed closed", applogger.String("symbol", symbol))
	}
}

// connect dials upstream for sub and starts its read loop on success.
func (m *Manager) connect(sub *subscription) {
	ctx, cancel := context.WithTimeout(context.Background(), m.dialTimeout)
	conn, err := m.feed.Dial(ctx, sub.symbol)
	cancel()

	m.mu.Lock()
	if sub.state == StateClosed || len(sub.subscribers) == 0 {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		m.mu.Unlock()
		if m.metrics != nil {
			m.metrics.RecordError("feed_connect")
		}
		if m.logger != nil {
			m.logger.Warn("feed connect failed", applogger.String("symbol", sub.symbol), applogger.Error(err))
		}
		m.scheduleReconnect(sub)
		return
	}

	sub.conn = conn
	sub.state = StateConnected
	sub.attempts = 0
	m.mu.Unlock()

	m.notify(Event{Symbol: sub.symbol, Type: "connected"})
	if m.logger != nil {
		m.logger.Info("feed connected", applogger.String("symbol", sub.symbol))
	}

	go m.readLoop(sub, conn)
}

// readLoop parses incoming messages and fans them out synchronously.
// Malformed payloads are dropped and counted; any other error tears the
// connection down and schedules a reconnect.
func (m *Manager) readLoop(sub *subscription, conn drepo.TickConn) {
	for {
		t, err := conn.ReadTick()
		if err != nil {
			if errors.Is(err, drepo.ErrMalformedTick) {
				m.mu.Lock()
				m.parseDrops++
				m.mu.Unlock()
				if m.metrics != nil {
					m.metrics.RecordDroppedTick("parse")
				}
				continue
			}
			m.handleDisconnect(sub, conn)
			return
		}
		if t == nil {
			continue
		}

		m.mu.Lock()
		if sub.conn != conn {
			// superseded by a newer connection
			m.mu.Unlock()
			return
		}
		handlers := make([]Subscriber, 0, len(sub.subscribers))
		for _, h := range sub.subscribers {
			handlers = append(handlers, h)
		}
		m.mu.Unlock()

		if m.metrics != nil {
			m.metrics.RecordTick(t.Source, t.Symbol)
			m.metrics.RecordLastPrice(t.Symbol, t.Price)
		}
		for _, h := range handlers {
			h(t)
		}
	}
}

func (m *Manager) handleDisconnect(sub *subscription, conn drepo.TickConn) {
	_ = conn.Close()

	m.mu.Lock()
	if sub.conn != conn || sub.state == StateClosed {
		m.mu.Unlock()
		return
	}
	sub.conn = nil
	if len(sub.subscribers) == 0 {
		sub.state = StateClosed
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.notify(Event{Symbol: sub.symbol, Type: "disconnected"})
	if m.metrics != nil {
		m.metrics.RecordReconnect(sub.symbol)
	}

	m.scheduleReconnect(sub)
}

func (m *Manager) scheduleReconnect(sub *subscription) {
	m.mu.Lock()
	if sub.state == StateClosed || len(sub.subscribers) == 0 {
		m.mu.Unlock()
		return
	}
	sub.attempts++
	sub.state = StateReconnectWaiting
	delay := ReconnectDelay(sub.attempts)
	attempt := sub.attempts
	sub.retryTimer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if sub.state != StateReconnectWaiting {
			m.mu.Unlock()
			return
		}
		sub.retryTimer = nil
		sub.state = StateConnecting
		m.mu.Unlock()
		m.connect(sub)
	})
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Warn("feed reconnect scheduled",
			applogger.String("symbol", sub.symbol),
			applogger.Int("attempt", attempt),
			applogger.Duration("delay", delay))
	}
}

// OnEvent registers a connect/disconnect observer; the returned disposer
// removes exactly this registration.
func (m *Manager) OnEvent(h EventHandler) func() {
	m.mu.Lock()
	id := m.nextEventID
	m.nextEventID++
	m.events[id] = h
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.events, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify(e Event) {
	m.mu.Lock()
	handlers := make([]EventHandler, 0, len(m.events))
	for _, h := range m.events {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()
	for _, h := range handlers {
		h(e)
	}
}

// Status returns the connection state for symbol (Idle when unknown).
func (m *Manager) Status(symbol string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subs[symbol]; ok {
		return sub.state
	}
	return StateIdle
}

// SubscriberCount returns the number of live subscribers for symbol.
func (m *Manager) SubscriberCount(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subs[symbol]; ok {
		return len(sub.subscribers)
	}
	return 0
}

// ParseDrops returns how many malformed payloads were dropped.
func (m *Manager) ParseDrops() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.parseDrops
}

// Close tears down every subscription. Unsubscribe funcs stay safe to call.
func (m *Manager) Close() {
	m.mu.Lock()
	subs := m.subs
	m.subs = make(map[string]*subscription)
	m.mu.Unlock()

	for _, sub := range subs {
		m.mu.Lock()
		if sub.retryTimer != nil {
			sub.retryTimer.Stop()
			sub.retryTimer = nil
		}
		conn := sub.conn
		sub.conn = nil
		sub.state = StateClosed
		sub.subscribers = make(map[int]Subscriber)
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
	}
}
