package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
	"github.com/alanyoungcy/windowbot/internal/notify"
	"github.com/alanyoungcy/windowbot/internal/window"
)

// SummaryArchiver uploads one graded window and returns its object key.
type SummaryArchiver interface {
	ArchiveSummary(ctx context.Context, s domain.GradedSummary) (string, error)
}

// SummarySinks are the optional outputs of a SummaryService. Nil members are
// skipped.
type SummarySinks struct {
	Store    domain.SummaryStore
	Audit    domain.AuditStore
	Archiver SummaryArchiver
	Bus      domain.SignalBus
	Locks    domain.LockManager
	Notifier *notify.Notifier
}

// StatusEvent is the JSON broadcast on domain.ChannelWindowStatus each tick.
type StatusEvent struct {
	Time             time.Time `json:"time"`
	Slug             string    `json:"slug"`
	Remaining        string    `json:"remaining"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Phase            string    `json:"phase"`
	Transition       string    `json:"transition"`
	HasMarket        bool      `json:"has_market"`
	Error            string    `json:"error,omitempty"`
}

// SummaryService implements window.Reporter. Each graded summary is persisted,
// archived, published and announced exactly once across all running
// instances: a Redis lock named graded:{slug} plus the store's unique slug
// guard the fan-out.
type SummaryService struct {
	sinks         SummarySinks
	lockTTL       time.Duration
	sinkTimeout   time.Duration
	statusTimeout time.Duration
	logger        *slog.Logger

	wg         sync.WaitGroup
	mu         sync.Mutex
	failedSlug string
}

// NewSummaryService returns a SummaryService writing to sinks.
func NewSummaryService(sinks SummarySinks, lockTTL time.Duration, logger *slog.Logger) *SummaryService {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	return &SummaryService{
		sinks:         sinks,
		lockTTL:       lockTTL,
		sinkTimeout:   15 * time.Second,
		statusTimeout: 500 * time.Millisecond,
		logger:        logger.With(slog.String("component", "summary_service")),
	}
}

// Graded fans s out in the background so a slow sink never delays a tick.
func (svc *SummaryService) Graded(ctx context.Context, s domain.GradedSummary) {
	svc.wg.Add(1)
	go func() {
		defer svc.wg.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), svc.sinkTimeout)
		defer cancel()
		svc.publishSummary(sctx, s)
	}()
}

// Status broadcasts line and raises a fetch alert the first time a slug
// fails to resolve.
func (svc *SummaryService) Status(ctx context.Context, line window.StatusLine) {
	if line.FetchErr != nil && svc.firstFailure(line.Slug) {
		svc.wg.Add(1)
		go func() {
			defer svc.wg.Done()
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), svc.sinkTimeout)
			defer cancel()
			svc.alertFetchFailure(sctx, line)
		}()
	}

	if svc.sinks.Bus == nil {
		return
	}
	payload, err := json.Marshal(NewStatusEvent(line))
	if err != nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, svc.statusTimeout)
	defer cancel()
	if err := svc.sinks.Bus.Publish(pctx, domain.ChannelWindowStatus, payload); err != nil {
		svc.logger.DebugContext(ctx, "status publish failed", slog.String("error", err.Error()))
	}
}

// Wait blocks until every background fan-out has finished.
func (svc *SummaryService) Wait() {
	svc.wg.Wait()
}

// NewStatusEvent converts a tracker status line to its broadcast form.
func NewStatusEvent(line window.StatusLine) StatusEvent {
	ev := StatusEvent{
		Time:             line.Time.UTC(),
		Slug:             line.Slug,
		Remaining:        window.FormatCountdown(line.Remaining),
		RemainingSeconds: int64(line.Remaining / time.Second),
		Phase:            string(line.Phase),
		Transition:       line.Transition.String(),
		HasMarket:        line.HasMarket,
	}
	if line.FetchErr != nil {
		ev.Error = line.FetchErr.Error()
	}
	return ev
}

func (svc *SummaryService) firstFailure(slug string) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.failedSlug == slug {
		return false
	}
	svc.failedSlug = slug
	return true
}

func (svc *SummaryService) publishSummary(ctx context.Context, s domain.GradedSummary) {
	log := svc.logger.With(slog.String("slug", s.Slug))

	if svc.sinks.Locks != nil {
		unlock, err := svc.sinks.Locks.Acquire(ctx, "graded:"+s.Slug, svc.lockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			log.InfoContext(ctx, "summary already claimed by another instance")
			return
		case err != nil:
			log.WarnContext(ctx, "grading lock unavailable, continuing", slog.String("error", err.Error()))
		default:
			// A completed fan-out keeps the claim until lockTTL so a replica
			// grading the same window later skips it. An interrupted one
			// releases it for a retry.
			defer func() {
				if ctx.Err() != nil {
					unlock()
				}
			}()
		}
	}

	if svc.sinks.Store != nil {
		if err := svc.sinks.Store.Insert(ctx, s); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				log.InfoContext(ctx, "summary already stored, skipping fan-out")
				return
			}
			log.ErrorContext(ctx, "store summary failed", slog.String("error", err.Error()))
		}
	}

	var archivePath string
	if svc.sinks.Archiver != nil {
		p, err := svc.sinks.Archiver.ArchiveSummary(ctx, s)
		if err != nil {
			log.ErrorContext(ctx, "archive summary failed", slog.String("error", err.Error()))
		}
		archivePath = p
	}

	if svc.sinks.Bus != nil {
		payload, err := json.Marshal(s)
		if err == nil {
			if err := svc.sinks.Bus.Publish(ctx, domain.ChannelWindowGraded, payload); err != nil {
				log.WarnContext(ctx, "publish summary failed", slog.String("error", err.Error()))
			}
			if err := svc.sinks.Bus.StreamAppend(ctx, domain.StreamWindowGraded, payload); err != nil {
				log.WarnContext(ctx, "stream summary failed", slog.String("error", err.Error()))
			}
		}
	}

	if svc.sinks.Notifier.Enabled() {
		if err := svc.sinks.Notifier.Notify(ctx, notify.EventWindowGraded,
			"Window graded "+s.Slug, window.FormatSummary(s)); err != nil {
			log.WarnContext(ctx, "notify summary failed", slog.String("error", err.Error()))
		}
	}

	svc.audit(ctx, "window_graded", map[string]any{
		"slug":      s.Slug,
		"total_pnl": s.TotalPnL,
		"outcome":   s.Outcome,
		"archive":   archivePath,
	})
	log.InfoContext(ctx, "summary published", slog.Float64("total_pnl", s.TotalPnL))
}

func (svc *SummaryService) alertFetchFailure(ctx context.Context, line window.StatusLine) {
	if svc.sinks.Notifier.Enabled() {
		msg := "slug " + line.Slug + "\n" + line.FetchErr.Error()
		if err := svc.sinks.Notifier.Notify(ctx, notify.EventFetchFailed, "Market fetch failed", msg); err != nil {
			svc.logger.WarnContext(ctx, "notify fetch failure failed", slog.String("error", err.Error()))
		}
	}
	svc.audit(ctx, "fetch_failed", map[string]any{
		"slug":  line.Slug,
		"error": line.FetchErr.Error(),
	})
}

func (svc *SummaryService) audit(ctx context.Context, event string, detail map[string]any) {
	if svc.sinks.Audit == nil {
		return
	}
	if err := svc.sinks.Audit.Log(ctx, event, detail); err != nil {
		svc.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

var _ window.Reporter = (*SummaryService)(nil)
