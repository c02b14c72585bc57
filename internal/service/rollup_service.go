package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

// RollupArchiver writes a day's summaries as one object.
type RollupArchiver interface {
	Rollup(ctx context.Context, day time.Time, summaries []domain.GradedSummary) (string, error)
	RollupKey(day time.Time) string
}

// RollupService uploads yesterday's graded windows as a single JSONL object
// once the UTC day is over. An existing rollup object is never rewritten.
type RollupService struct {
	store    domain.SummaryStore
	reader   domain.BlobReader
	archiver RollupArchiver
	audit    domain.AuditStore
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	done map[string]bool
}

// NewRollupService returns a RollupService checking every interval. audit
// may be nil.
func NewRollupService(
	store domain.SummaryStore,
	reader domain.BlobReader,
	archiver RollupArchiver,
	audit domain.AuditStore,
	interval time.Duration,
	logger *slog.Logger,
) *RollupService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RollupService{
		store:    store,
		reader:   reader,
		archiver: archiver,
		audit:    audit,
		interval: interval,
		logger:   logger.With(slog.String("component", "rollup_service")),
		now:      time.Now,
		done:     make(map[string]bool),
	}
}

// Run checks immediately and then every interval until ctx is done.
func (r *RollupService) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.RollupDay(ctx, previousDay(r.now())); err != nil {
			r.logger.ErrorContext(ctx, "daily rollup failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RollupDay writes the rollup for the UTC day containing day and returns its
// key. It returns "" when the rollup already exists or the day had no graded
// windows.
func (r *RollupService) RollupDay(ctx context.Context, day time.Time) (string, error) {
	start := startOfDay(day)
	key := r.archiver.RollupKey(start)
	if r.done[key] {
		return "", nil
	}

	exists, err := r.reader.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("service: rollup %s: %w", key, err)
	}
	if exists {
		r.done[key] = true
		return "", nil
	}

	until := start.Add(24*time.Hour - time.Nanosecond)
	summaries, err := r.store.ListRecent(ctx, domain.ListOpts{Since: &start, Until: &until})
	if err != nil {
		return "", fmt.Errorf("service: rollup list %s: %w", start.Format(time.DateOnly), err)
	}
	if len(summaries) == 0 {
		return "", nil
	}

	// ListRecent is newest first; rollups read oldest first.
	for i, j := 0, len(summaries)-1; i < j; i, j = i+1, j-1 {
		summaries[i], summaries[j] = summaries[j], summaries[i]
	}
	path, err := r.archiver.Rollup(ctx, start, summaries)
	if err != nil {
		return "", fmt.Errorf("service: rollup upload %s: %w", key, err)
	}
	r.done[key] = true

	r.logger.InfoContext(ctx, "daily rollup written",
		slog.String("path", path),
		slog.Int("windows", len(summaries)),
	)
	if r.audit != nil {
		if err := r.audit.Log(ctx, "rollup_written", map[string]any{"path": path, "windows": len(summaries)}); err != nil {
			r.logger.WarnContext(ctx, "audit log failed",
				slog.String("event", "rollup_written"),
				slog.String("error", err.Error()),
			)
		}
	}
	return path, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func previousDay(now time.Time) time.Time {
	return startOfDay(now).AddDate(0, 0, -1)
}
