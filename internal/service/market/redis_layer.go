package market

import (
	"context"
	"fmt"
	"time"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	pkgcache "DipWatch/pkg/cache"
)

const sharedSnapshotTTL = 30 * time.Second

// SharedSnapshots backs a SnapshotSource with an external cache so that
// replicas behind the same Redis share 24h snapshot fetches. Cache failures
// fall through to the upstream source.
type SharedSnapshots struct {
	source drepo.SnapshotSource
	store  pkgcache.Service
	ttl    time.Duration
}

func NewSharedSnapshots(source drepo.SnapshotSource, store pkgcache.Service) *SharedSnapshots {
	return &SharedSnapshots{source: source, store: store, ttl: sharedSnapshotTTL}
}

func (s *SharedSnapshots) Snapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	key := fmt.Sprintf("snapshot:24h:%s", symbol)

	var cached models.MarketSnapshot
	if err := s.store.Get(ctx, key, &cached); err == nil && cached.Symbol != "" {
		return &cached, nil
	}

	snap, err := s.source.Snapshot(ctx, symbol)
	if err != nil {
		return nil, err
	}
	_ = s.store.Set(ctx, key, snap, s.ttl)
	return snap, nil
}

var _ drepo.SnapshotSource = (*SharedSnapshots)(nil)
