package window

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

// StatusLine is the per-tick status handed to a Reporter.
type StatusLine struct {
	Time       time.Time
	Remaining  time.Duration
	Slug       string
	Phase      Phase
	Transition Transition
	HasMarket  bool
	FetchErr   error
}

// Reporter receives tracker output. Implementations must not block for long;
// they run on the tick goroutine.
type Reporter interface {
	Status(ctx context.Context, line StatusLine)
	Graded(ctx context.Context, summary domain.GradedSummary)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Status(context.Context, StatusLine)            {}
func (NopReporter) Graded(context.Context, domain.GradedSummary) {}

// MultiReporter fans out to several reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) Status(ctx context.Context, line StatusLine) {
	for _, r := range m {
		r.Status(ctx, line)
	}
}

func (m MultiReporter) Graded(ctx context.Context, s domain.GradedSummary) {
	for _, r := range m {
		r.Graded(ctx, s)
	}
}

// LogReporter writes status lines at debug level and summaries at info level.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter returns a LogReporter on logger.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{logger: logger.With(slog.String("component", "window_report"))}
}

func (r *LogReporter) Status(ctx context.Context, line StatusLine) {
	r.logger.DebugContext(ctx, "window status",
		slog.String("time", line.Time.UTC().Format(time.TimeOnly)),
		slog.String("remaining", FormatCountdown(line.Remaining)),
		slog.String("slug", line.Slug),
		slog.String("phase", string(line.Phase)),
		slog.Bool("market", line.HasMarket),
	)
}

func (r *LogReporter) Graded(ctx context.Context, s domain.GradedSummary) {
	r.logger.InfoContext(ctx, "window summary",
		slog.String("slug", s.Slug),
		slog.Float64("total_pnl", s.TotalPnL),
		slog.String("outcome", s.Outcome),
		slog.String("settlement_price", s.SettlementPrice),
		slog.String("block", FormatSummary(s)),
	)
}

// FormatCountdown renders d as MM:SS.
func FormatCountdown(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// FormatSummary renders s as a multi-line text block.
func FormatSummary(s domain.GradedSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Window   %s\n", s.Slug)
	fmt.Fprintf(&b, "Start    %s\n", s.StartTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "End      %s\n", s.EndTime.UTC().Format(time.RFC3339))
	for _, r := range s.Records {
		fmt.Fprintf(&b, "[%s] entry=%s result=%s pnl=%+.2f\n", r.Label, r.Entry, r.Result, r.PnL)
	}
	fmt.Fprintf(&b, "Settle   %s\n", s.SettlementPrice)
	fmt.Fprintf(&b, "Outcome  %s\n", s.Outcome)
	fmt.Fprintf(&b, "Total    %+.2f", s.TotalPnL)
	return b.String()
}
