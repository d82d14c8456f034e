package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
)

// ArchivePipeline sits between the live feed and the tick archive. It
// validates, buffers, and flushes accepted ticks in batches so archive
// hiccups never stall the hot path.
type ArchivePipeline struct {
	archive drepo.TickArchive
	metrics drepo.Metrics

	batchSize    int
	batchTimeout time.Duration
	bufCh        chan *models.Tick
	stopCh       chan struct{}
	doneCh       chan struct{}

	mu      sync.Mutex
	started bool
}

type PipelineOption func(*ArchivePipeline)

// WithBatch sets the flush batch size and the max time a tick may wait.
func WithBatch(size int, timeout time.Duration) PipelineOption {
	return func(p *ArchivePipeline) {
		if size > 0 {
			p.batchSize = size
		}
		if timeout > 0 {
			p.batchTimeout = timeout
		}
	}
}

// WithBufferSize sets the intake buffer size.
func WithBufferSize(n int) PipelineOption {
	return func(p *ArchivePipeline) {
		if n > 0 {
			p.bufCh = make(chan *models.Tick, n)
		}
	}
}

func NewArchivePipeline(archive drepo.TickArchive, metrics drepo.Metrics, opts ...PipelineOption) *ArchivePipeline {
	p := &ArchivePipeline{
		archive:      archive,
		metrics:      metrics,
		batchSize:    500,
		batchTimeout: 2 * time.Second,
		bufCh:        make(chan *models.Tick, 10000),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enqueue accepts one tick for archival. Never blocks; when the buffer is
// full the tick is dropped and counted.
func (p *ArchivePipeline) Enqueue(t *models.Tick) {
	if err := validateTick(t); err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("archive_validate")
		}
		return
	}
	select {
	case p.bufCh <- t:
	default:
		if p.metrics != nil {
			p.metrics.RecordError("archive_buffer_full")
		}
	}
}

// Start launches the background flusher.
func (p *ArchivePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.flushLoop(ctx)
}

func (p *ArchivePipeline) flushLoop(ctx context.Context) {
	defer close(p.doneCh)

	batch := make([]*models.Tick, 0, p.batchSize)
	ticker := time.NewTicker(p.batchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		p.flushWithRetry(ctx, batch)
		batch = batch[:0]
	}

	for {
		select {
		case <-p.stopCh:
			// drain what is already buffered, then final flush
			for {
				select {
				case t := <-p.bufCh:
					batch = append(batch, t)
				default:
					flush()
					return
				}
			}
		case t := <-p.bufCh:
			batch = append(batch, t)
			if len(batch) >= p.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// flushWithRetry writes one batch, backing off then dropping it after
// repeated failures so the buffer cannot wedge behind a dead archive.
func (p *ArchivePipeline) flushWithRetry(ctx context.Context, batch []*models.Tick) {
	backoff := 50 * time.Millisecond
	for attempt := 0; attempt < 5; attempt++ {
		start := time.Now()
		err := p.archive.ArchiveBatch(ctx, batch)
		if err == nil {
			if p.metrics != nil {
				p.metrics.RecordLatency("archive_flush", time.Since(start).Seconds())
			}
			return
		}
		if p.metrics != nil {
			p.metrics.RecordError("archive_flush")
		}
		select {
		case <-p.stopCh:
			return
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	if p.metrics != nil {
		p.metrics.RecordError("archive_batch_drop")
	}
}

// Stop flushes buffered ticks and stops the flusher.
func (p *ArchivePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

func validateTick(t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick nil")
	}
	if t.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if t.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if t.Price < 0 || t.Volume < 0 {
		return fmt.Errorf("negative price/volume")
	}
	return nil
}
