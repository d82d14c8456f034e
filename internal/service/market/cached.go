package market

import (
	"context"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	icache "DipWatch/internal/service/cache"
)

const snapshotCategory = "market_snapshot"

// CachedSnapshots wraps a SnapshotSource with the shared TTL cache so bursts
// of identical requests hit the upstream REST API at most once per TTL.
type CachedSnapshots struct {
	source  drepo.SnapshotSource
	cache   *icache.TTLCache
	metrics drepo.Metrics
}

func NewCachedSnapshots(source drepo.SnapshotSource, cache *icache.TTLCache, metrics drepo.Metrics) *CachedSnapshots {
	return &CachedSnapshots{source: source, cache: cache, metrics: metrics}
}

func (c *CachedSnapshots) Snapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	params := map[string]string{"symbol": symbol}

	produced := false
	v, err := c.cache.FetchWithCache(ctx, snapshotCategory, params, func(ctx context.Context) (any, error) {
		produced = true
		return c.source.Snapshot(ctx, symbol)
	})
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(snapshotCategory, !produced)
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError("market_snapshot")
		}
		return nil, err
	}
	return v.(*models.MarketSnapshot), nil
}

var _ drepo.SnapshotSource = (*CachedSnapshots)(nil)
