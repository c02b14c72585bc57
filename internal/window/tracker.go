package window

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

// Config holds the tunables of a Tracker.
type Config struct {
	SlugPrefix      string
	Duration        time.Duration
	SettlementDelay time.Duration
	TickInterval    time.Duration
	Records         []string
}

// TickResult describes what one tick did.
type TickResult struct {
	Transition Transition
	Phase      Phase
	Slug       string
	Remaining  time.Duration
	HasMarket  bool
	FetchErr   error
	Graded     []domain.GradedSummary
}

// Snapshot is a point-in-time copy of the tracker's state.
type Snapshot struct {
	State     domain.WindowState
	Market    domain.MarketRecord
	HasMarket bool
	Phase     Phase
	Remaining time.Duration
}

// Tracker drives the window lifecycle one tick at a time.
//
// Ticks are serialised by tickMu. mu guards the state record and detector and
// is held across every check-grade-mark sequence, so downstream writers
// (Update) and readers (Snapshot) may run on other goroutines.
type Tracker struct {
	tickMu sync.Mutex
	mu     sync.Mutex

	clock    Clock
	detector *Detector
	cache    *MarketCache
	labels   []string
	interval time.Duration

	state  *domain.WindowState
	market *domain.MarketRecord

	reporter Reporter
	logger   *slog.Logger
	now      func() time.Time
}

// NewTracker builds a Tracker that fetches metadata through fetcher and hands
// status lines and summaries to reporter. A nil reporter discards output.
func NewTracker(cfg Config, fetcher domain.MarketFetcher, reporter Reporter, logger *slog.Logger) *Tracker {
	if reporter == nil {
		reporter = NopReporter{}
	}
	delay := cfg.SettlementDelay
	if delay == 0 {
		delay = DefaultSettlementDelay
	}
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	labels := cfg.Records
	if len(labels) == 0 {
		labels = []string{"main"}
	}
	return &Tracker{
		clock:    NewClock(cfg.SlugPrefix, cfg.Duration),
		detector: NewDetector(delay),
		cache:    NewMarketCache(fetcher),
		labels:   append([]string(nil), labels...),
		interval: interval,
		reporter: reporter,
		logger:   logger.With(slog.String("component", "window_tracker")),
		now:      time.Now,
	}
}

// Clock returns the tracker's slug clock.
func (t *Tracker) Clock() Clock { return t.clock }

// Run ticks immediately and then every TickInterval until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.InfoContext(ctx, "window tracker started",
		slog.String("prefix", t.clock.Prefix()),
		slog.Duration("window", t.clock.Duration()),
		slog.Duration("interval", t.interval),
	)

	t.Tick(ctx, t.now())

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Tick(ctx, t.now())
		}
	}
}

// Tick runs one pass of the lifecycle for wall-clock time now. It never fails:
// fetch errors are reported in the result and retried on the next tick.
func (t *Tracker) Tick(ctx context.Context, now time.Time) TickResult {
	t.tickMu.Lock()
	defer t.tickMu.Unlock()

	slug := t.clock.SlugAt(now)
	res := TickResult{Slug: slug, Transition: SameWindow}

	// Transition: grade the outgoing window before it is replaced.
	t.mu.Lock()
	if t.state == nil || t.state.Slug != slug {
		res.Transition = t.detector.Classify(now, slug, 0, t.state)
		if t.state != nil {
			if s, ok := Grade(t.state, now); ok {
				t.logger.InfoContext(ctx, "window graded on transition",
					slog.String("slug", s.Slug),
					slog.String("next", slug),
				)
				res.Graded = append(res.Graded, s)
			}
		}
		start := t.clock.BucketStart(now)
		t.state = domain.NewWindowState(slug, start, t.clock.WindowEnd(start), t.labels)
		t.market = nil
	}
	t.mu.Unlock()

	if res.Transition == NewWindow {
		t.cache.Invalidate()
	}
	rec, err := t.cache.Get(ctx, slug)

	t.mu.Lock()
	if err != nil {
		res.FetchErr = err
	} else {
		t.market = &rec
		res.HasMarket = true
		if rec.HasEndTime() && !t.state.Graded() {
			if t.endInWindow(rec.EndTime) {
				t.state.EndTime = rec.EndTime
			} else {
				t.logger.DebugContext(ctx, "ignoring market end outside window",
					slog.String("slug", slug),
					slog.Time("end", rec.EndTime),
				)
			}
		}
	}

	res.Remaining = TimeRemaining(t.state.EndTime, now)
	// Classify on the reset tick too, so a window that opens already at zero
	// starts its settlement timer now.
	tr := t.detector.Classify(now, slug, res.Remaining, t.state)
	if res.Transition != NewWindow {
		res.Transition = tr
	}
	if tr == WindowEnding {
		if s, ok := Grade(t.state, now); ok {
			t.logger.InfoContext(ctx, "window graded at close", slog.String("slug", s.Slug))
			res.Graded = append(res.Graded, s)
		}
	}
	res.Phase = t.detector.Phase(t.state, res.Remaining)
	t.mu.Unlock()

	if res.FetchErr != nil {
		t.logger.WarnContext(ctx, "market fetch failed, retrying next tick",
			slog.String("slug", slug),
			slog.String("error", res.FetchErr.Error()),
		)
	}

	for _, s := range res.Graded {
		t.reporter.Graded(ctx, s)
	}
	t.reporter.Status(ctx, StatusLine{
		Time:       now,
		Remaining:  res.Remaining,
		Slug:       slug,
		Phase:      res.Phase,
		Transition: res.Transition,
		HasMarket:  res.HasMarket,
		FetchErr:   res.FetchErr,
	})

	return res
}

// endInWindow reports whether end falls in (start, start+duration] of the
// current window.
func (t *Tracker) endInWindow(end time.Time) bool {
	start := t.state.StartTime
	return end.After(start) && !end.After(t.clock.WindowEnd(start))
}

// Update applies fn to the current state under the tracker lock. It fails with
// domain.ErrWindowGraded once the window has been graded.
func (t *Tracker) Update(fn func(*domain.WindowState) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == nil {
		return fmt.Errorf("window: update: %w: no active window", domain.ErrNotFound)
	}
	if t.state.Graded() {
		return fmt.Errorf("window: update %s: %w", t.state.Slug, domain.ErrWindowGraded)
	}
	return fn(t.state)
}

// UpdateSlug is like Update but only applies fn when slug is still the active
// window, so a late writer cannot touch the next window by mistake.
func (t *Tracker) UpdateSlug(slug string, fn func(*domain.WindowState) error) error {
	return t.Update(func(st *domain.WindowState) error {
		if st.Slug != slug {
			return fmt.Errorf("window: update %s: %w: active window is %s", slug, domain.ErrNotFound, st.Slug)
		}
		return fn(st)
	})
}

// CacheStats returns the market cache counters.
func (t *Tracker) CacheStats() CacheStats {
	t.tickMu.Lock()
	defer t.tickMu.Unlock()
	return t.cache.Stats()
}

// Snapshot returns a copy of the current state. ok is false before the first
// tick.
func (t *Tracker) Snapshot() (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == nil {
		return Snapshot{}, false
	}
	rem := TimeRemaining(t.state.EndTime, t.now())
	snap := Snapshot{
		State:     t.state.Clone(),
		Phase:     t.detector.Phase(t.state, rem),
		Remaining: rem,
	}
	if t.market != nil {
		snap.Market = *t.market
		snap.HasMarket = true
	}
	return snap, true
}
