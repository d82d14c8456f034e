package repository

import (
	"context"
	"errors"

	"DipWatch/internal/domain/models"
)

// ErrMalformedTick marks a feed payload that failed to parse. The connection
// manager drops and counts these; any other read error triggers a reconnect.
var ErrMalformedTick = errors.New("malformed tick payload")

// TickConn is one live per-symbol upstream stream.
type TickConn interface {
	ReadTick() (*models.Tick, error)
	Close() error
}

// MarketFeed dials a streaming ticker channel for one symbol.
type MarketFeed interface {
	Dial(ctx context.Context, symbol string) (TickConn, error)
}

// SignalPublisher pushes computed trading signals downstream.
type SignalPublisher interface {
	Publish(ctx context.Context, s *models.TradingSignals) error
	Close() error
}

// TickArchive persists raw accepted ticks for offline dashboards. The engine
// never reads from it; in-memory state is rebuilt from the live feed.
type TickArchive interface {
	Init(ctx context.Context) error
	Archive(ctx context.Context, t *models.Tick) error
	ArchiveBatch(ctx context.Context, ticks []*models.Tick) error
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordTick(source, symbol string)
	RecordDroppedTick(reason string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordReconnect(symbol string)
	RecordCacheLookup(category string, hit bool)
}

// SnapshotSource fetches a 24h market overview for one symbol.
type SnapshotSource interface {
	Snapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error)
}
