package redis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

// ReadThrough is a domain.MarketFetcher that consults a MarketMirror before
// the upstream fetcher and mirrors every successful upstream result. Mirror
// errors are logged and never fail a fetch.
type ReadThrough struct {
	upstream domain.MarketFetcher
	mirror   domain.MarketMirror
	logger   *slog.Logger
}

// NewReadThrough wraps upstream with mirror.
func NewReadThrough(upstream domain.MarketFetcher, mirror domain.MarketMirror, logger *slog.Logger) *ReadThrough {
	return &ReadThrough{
		upstream: upstream,
		mirror:   mirror,
		logger:   logger.With(slog.String("component", "market_mirror")),
	}
}

// FetchMarket implements domain.MarketFetcher.
func (r *ReadThrough) FetchMarket(ctx context.Context, slug string) (domain.MarketRecord, error) {
	rec, err := r.mirror.Get(ctx, slug)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		r.logger.WarnContext(ctx, "mirror read failed", slog.String("slug", slug), slog.String("error", err.Error()))
	}

	rec, err = r.upstream.FetchMarket(ctx, slug)
	if err != nil {
		return domain.MarketRecord{}, err
	}
	rec.Slug = slug
	if err := r.mirror.Set(ctx, rec); err != nil {
		r.logger.WarnContext(ctx, "mirror write failed", slog.String("slug", slug), slog.String("error", err.Error()))
	}
	return rec, nil
}

var _ domain.MarketFetcher = (*ReadThrough)(nil)
