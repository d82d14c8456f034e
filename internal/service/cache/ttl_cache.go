// Package cache provides the category-keyed TTL cache used to memoize
// expensive external lookups (market snapshots, search results).
package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Category TTLs. Unknown categories fall back to DefaultTTL.
const (
	DefaultTTL = 5 * time.Minute
	// high-churn lookups
	TTLMarketSnapshot = 30 * time.Second
	TTLPrice          = 30 * time.Second
	// near-static lookups
	TTLSymbolSearch = time.Hour
	TTLCoinMeta     = time.Hour
)

var categoryTTLs = map[string]time.Duration{
	"market_snapshot": TTLMarketSnapshot,
	"price":           TTLPrice,
	"symbol_search":   TTLSymbolSearch,
	"coin_metadata":   TTLCoinMeta,
}

// TTLForCategory returns the configured TTL for a category, or DefaultTTL.
func TTLForCategory(category string) time.Duration {
	if ttl, ok := categoryTTLs[category]; ok {
		return ttl
	}
	return DefaultTTL
}

type entry struct {
	key       string
	category  string
	value     any
	createdAt time.Time
	expiresAt time.Time
}

// Stats is a point-in-time view of cache accounting.
type Stats struct {
	Size    int         `json:"size"`
	Hits    int64       `json:"hits"`
	Misses  int64       `json:"misses"`
	HitRate float64     `json:"hit_rate"` // percent
	Entries []EntryInfo `json:"entries"`
}

// EntryInfo describes one cached entry for observability.
type EntryInfo struct {
	Key       string        `json:"key"`
	Category  string        `json:"category"`
	Age       time.Duration `json:"age"`
	Remaining time.Duration `json:"remaining"`
	Expired   bool          `json:"expired"`
}

// TTLCache is a category-keyed expiring cache with hit/miss accounting.
// Entries are lazily deleted on expired reads and proactively removed by a
// background sweep. A hard max-entries bound with oldest-first eviction is
// the only backpressure mechanism.
type TTLCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	hits    int64
	misses  int64

	maxEntries  int
	producerTO  time.Duration
	sweepTicker *time.Ticker
	stopCh      chan struct{}
	stopOnce    sync.Once

	now func() time.Time // injectable clock
}

// Option configures TTLCache.
type Option func(*TTLCache)

// WithMaxEntries sets the hard entry bound.
func WithMaxEntries(n int) Option {
	return func(c *TTLCache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithSweepInterval sets the background sweep interval.
func WithSweepInterval(d time.Duration) Option {
	return func(c *TTLCache) {
		if d > 0 {
			c.sweepTicker.Reset(d)
		}
	}
}

// WithProducerTimeout bounds each FetchWithCache producer call.
func WithProducerTimeout(d time.Duration) Option {
	return func(c *TTLCache) {
		if d > 0 {
			c.producerTO = d
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTTLCache creates the cache and starts its background sweep.
func NewTTLCache(opts ...Option) *TTLCache {
	c := &TTLCache{
		entries:     make(map[string]*entry),
		maxEntries:  1000,
		producerTO:  10 * time.Second,
		sweepTicker: time.NewTicker(2 * time.Minute),
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.sweepLoop()
	return c
}

// BuildKey joins the category with sorted "k:v" parameter pairs using "|".
func BuildKey(category string, params map[string]string) string {
	if len(params) == 0 {
		return category
	}
	pairs := make([]string, 0, len(params))
	for k, v := range params {
		pairs = append(pairs, fmt.Sprintf("%s:%s", k, v))
	}
	sort.Strings(pairs)
	return category + "|" + strings.Join(pairs, "|")
}

// Set stores value under category+params, overwriting any existing entry and
// resetting its creation and expiry times.
func (c *TTLCache) Set(category string, params map[string]string, value any) {
	key := BuildKey(category, params)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = &entry{
		key:       key,
		category:  category,
		value:     value,
		createdAt: now,
		expiresAt: now.Add(TTLForCategory(category)),
	}
}

// Get returns the cached value, or (nil, false) on a miss. An expired entry
// is deleted and counted as a miss; it is never returned past its expiry.
func (c *TTLCache) Get(category string, params map[string]string) (any, bool) {
	key := BuildKey(category, params)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if now.After(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// FetchWithCache returns the cached value on hit. On miss it invokes producer
// exactly once under the configured timeout, stores the result on success and
// returns it. A producer error propagates and nothing is cached.
func (c *TTLCache) FetchWithCache(ctx context.Context, category string, params map[string]string, producer func(context.Context) (any, error)) (any, error) {
	if v, ok := c.Get(category, params); ok {
		return v, nil
	}

	pctx, cancel := context.WithTimeout(ctx, c.producerTO)
	defer cancel()

	v, err := producer(pctx)
	if err != nil {
		return nil, fmt.Errorf("cache producer %s: %w", category, err)
	}
	c.Set(category, params, v)
	return v, nil
}

// Delete removes one entry if present.
func (c *TTLCache) Delete(category string, params map[string]string) {
	key := BuildKey(category, params)
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateCategory removes every entry of the given category.
func (c *TTLCache) InvalidateCategory(category string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, e := range c.entries {
		if e.category == category {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear drops all entries. Counters are kept.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// GetStats returns size, hit/miss counts, hit rate and an entry listing.
func (c *TTLCache) GetStats() Stats {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:    len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: make([]EntryInfo, 0, len(c.entries)),
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total) * 100
	}
	for _, e := range c.entries {
		s.Entries = append(s.Entries, EntryInfo{
			Key:       e.key,
			Category:  e.category,
			Age:       now.Sub(e.createdAt),
			Remaining: e.expiresAt.Sub(now),
			Expired:   now.After(e.expiresAt),
		})
	}
	sort.Slice(s.Entries, func(i, j int) bool { return s.Entries[i].Key < s.Entries[j].Key })
	return s
}

// Sweep removes all expired entries immediately and returns how many it dropped.
func (c *TTLCache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Close stops the background sweep.
func (c *TTLCache) Close() {
	c.stopOnce.Do(func() {
		c.sweepTicker.Stop()
		close(c.stopCh)
	})
}

func (c *TTLCache) sweepLoop() {
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.sweepTicker.C:
			c.Sweep()
		}
	}
}

// evictOldestLocked drops the entry with the earliest creation time.
func (c *TTLCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.createdAt.Before(oldest) {
			oldest = e.createdAt
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
