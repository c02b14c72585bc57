package domain

import (
	"context"
	"time"
)

// MarketMirror is a shared, TTL-bounded copy of market metadata keyed by
// window slug. It lets several trackers share one upstream fetch.
type MarketMirror interface {
	Set(ctx context.Context, rec MarketRecord) error
	Get(ctx context.Context, slug string) (MarketRecord, error)
	Invalidate(ctx context.Context, slug string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// Bus names used for window events.
const (
	ChannelWindowStatus = "window_status"
	ChannelWindowGraded = "window_graded"
	StreamWindowGraded  = "stream:window_graded"
)

// RateLimiter admits at most limit events per key per window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
