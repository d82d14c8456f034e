package usecase

import (
	"context"
	"strconv"
	"sync"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	applogger "DipWatch/pkg/logger"
)

// SignalBroadcaster watches computed snapshots and publishes the trading
// verdict downstream whenever it changes. Unchanged verdicts are suppressed
// so subscribers see transitions, not every tick.
type SignalBroadcaster struct {
	engine    *TechnicalEngine
	publisher drepo.SignalPublisher
	symbols   []string
	tf        drepo.Timeframe
	logger    *applogger.Logger
	metrics   drepo.Metrics

	mu      sync.Mutex
	last    map[string]string // symbol -> "overall/net"
	unsubs  []func()
	outCh   chan *models.TradingSignals
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

func NewSignalBroadcaster(engine *TechnicalEngine, publisher drepo.SignalPublisher, symbols []string, tf drepo.Timeframe, logger *applogger.Logger, metrics drepo.Metrics) *SignalBroadcaster {
	return &SignalBroadcaster{
		engine:    engine,
		publisher: publisher,
		symbols:   symbols,
		tf:        tf,
		logger:    logger,
		metrics:   metrics,
		last:      make(map[string]string),
		outCh:     make(chan *models.TradingSignals, 256),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start subscribes to every configured symbol and launches the publish loop.
func (b *SignalBroadcaster) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	for _, symbol := range b.symbols {
		unsub := b.engine.SubscribeToTechnicals(symbol, b.tf, b.onSnapshot)
		b.mu.Lock()
		b.unsubs = append(b.unsubs, unsub)
		b.mu.Unlock()
	}

	go b.publishLoop(ctx)
}

func (b *SignalBroadcaster) onSnapshot(snap *models.IndicatorSnapshot) {
	sig := GenerateSignals(snap)
	if sig == nil {
		return
	}

	key := sig.Overall + "/" + strconv.Itoa(sig.Net)
	b.mu.Lock()
	if b.last[sig.Symbol] == key {
		b.mu.Unlock()
		return
	}
	b.last[sig.Symbol] = key
	b.mu.Unlock()

	select {
	case b.outCh <- sig:
	default:
		if b.metrics != nil {
			b.metrics.RecordError("signal_publish_backlog")
		}
	}
}

func (b *SignalBroadcaster) publishLoop(ctx context.Context) {
	defer close(b.doneCh)
	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case sig := <-b.outCh:
			if err := b.publisher.Publish(ctx, sig); err != nil {
				if b.metrics != nil {
					b.metrics.RecordError("signal_publish")
				}
				if b.logger != nil {
					b.logger.Error("signal publish failed",
						applogger.Error(err),
						applogger.String("symbol", sig.Symbol))
				}
				continue
			}
			if b.logger != nil {
				b.logger.Info("signal published",
					applogger.String("symbol", sig.Symbol),
					applogger.String("overall", sig.Overall),
					applogger.Int("net", sig.Net))
			}
		}
	}
}

// Stop unsubscribes and stops publishing.
func (b *SignalBroadcaster) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	close(b.stopCh)
	<-b.doneCh
}
