package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultMirrorTTL bounds how long a mirrored record outlives its window.
const DefaultMirrorTTL = 20 * time.Minute

// MarketMirror implements domain.MarketMirror with one Redis hash per window.
//
// Key schema:
//
//	window:market:{slug} - hash {data: JSON record, end: unix seconds}
type MarketMirror struct {
	c   *Client
	ttl time.Duration
}

// NewMarketMirror returns a mirror whose entries expire after ttl.
func NewMarketMirror(c *Client, ttl time.Duration) *MarketMirror {
	if ttl <= 0 {
		ttl = DefaultMirrorTTL
	}
	return &MarketMirror{c: c, ttl: ttl}
}

func (m *MarketMirror) slugKey(slug string) string {
	return m.c.key("window", "market", slug)
}

// Set stores rec under its slug.
func (m *MarketMirror) Set(ctx context.Context, rec domain.MarketRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", rec.Slug, err)
	}

	key := m.slugKey(rec.Slug)
	pipe := m.c.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data, "end", strconv.FormatInt(rec.EndTime.Unix(), 10))
	pipe.Expire(ctx, key, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set market %s: %w", rec.Slug, err)
	}
	return nil
}

// Get returns the mirrored record for slug, or domain.ErrNotFound.
func (m *MarketMirror) Get(ctx context.Context, slug string) (domain.MarketRecord, error) {
	data, err := m.c.rdb.HGet(ctx, m.slugKey(slug), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.MarketRecord{}, domain.ErrNotFound
		}
		return domain.MarketRecord{}, fmt.Errorf("redis: get market %s: %w", slug, err)
	}

	var rec domain.MarketRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.MarketRecord{}, fmt.Errorf("redis: unmarshal market %s: %w", slug, err)
	}
	return rec, nil
}

// Invalidate drops the mirrored record for slug.
func (m *MarketMirror) Invalidate(ctx context.Context, slug string) error {
	if err := m.c.rdb.Del(ctx, m.slugKey(slug)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", slug, err)
	}
	return nil
}

var _ domain.MarketMirror = (*MarketMirror)(nil)
