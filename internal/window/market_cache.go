package window

import (
	"context"
	"errors"
	"fmt"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

// CacheStats counts upstream fetches made by a MarketCache.
type CacheStats struct {
	Fetches  int
	Failures int
}

// MarketCache holds the metadata of at most one market, keyed by the active
// slug. It is not safe for concurrent use; the Tracker serialises access.
type MarketCache struct {
	fetcher domain.MarketFetcher
	rec     *domain.MarketRecord
	stats   CacheStats
}

// NewMarketCache returns an empty cache that fetches through f.
func NewMarketCache(f domain.MarketFetcher) *MarketCache {
	return &MarketCache{fetcher: f}
}

// Get returns the record for slug. A cached record for the same slug is
// returned without I/O. Otherwise exactly one fetch is made; the slot is only
// replaced when that fetch succeeds.
func (c *MarketCache) Get(ctx context.Context, slug string) (domain.MarketRecord, error) {
	if c.rec != nil && c.rec.Slug == slug {
		return *c.rec, nil
	}

	c.stats.Fetches++
	rec, err := c.fetcher.FetchMarket(ctx, slug)
	if err != nil {
		c.stats.Failures++
		if errors.Is(err, domain.ErrFetchFailed) {
			return domain.MarketRecord{}, err
		}
		return domain.MarketRecord{}, fmt.Errorf("window: %w: %s: %w", domain.ErrFetchFailed, slug, err)
	}
	rec.Slug = slug
	c.rec = &rec
	return rec, nil
}

// Peek returns the cached record without fetching.
func (c *MarketCache) Peek() (domain.MarketRecord, bool) {
	if c.rec == nil {
		return domain.MarketRecord{}, false
	}
	return *c.rec, true
}

// Invalidate discards the cached record.
func (c *MarketCache) Invalidate() {
	c.rec = nil
}

// Stats returns the fetch counters.
func (c *MarketCache) Stats() CacheStats {
	return c.stats
}
