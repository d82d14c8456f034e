package usecase

import (
	"context"
	"sync"

	"DipWatch/internal/domain/models"
	mid "DipWatch/internal/middleware"
)

// TickCollector wires the configured symbols into the engine and, when an
// archive is configured, tees accepted ticks into the archive pipeline.
type TickCollector struct {
	stream  TickStream
	engine  *TechnicalEngine
	pipe    *mid.ArchivePipeline
	symbols []string

	mu     sync.Mutex
	unsubs []func()
}

func NewTickCollector(stream TickStream, engine *TechnicalEngine, pipe *mid.ArchivePipeline, symbols []string) *TickCollector {
	return &TickCollector{stream: stream, engine: engine, pipe: pipe, symbols: symbols}
}

func (c *TickCollector) Start(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	for _, symbol := range c.symbols {
		c.engine.Track(symbol)
		if c.pipe != nil {
			unsub := c.stream.Subscribe(symbol, func(t *models.Tick) {
				c.pipe.Enqueue(t)
			})
			c.mu.Lock()
			c.unsubs = append(c.unsubs, unsub)
			c.mu.Unlock()
		}
	}
	return nil
}

// Shutdown detaches archive taps, stops the pipeline, and drops engine
// subscriptions.
func (c *TickCollector) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
	if c.pipe != nil {
		c.pipe.Stop()
	}
	c.engine.Close()
	return nil
}
