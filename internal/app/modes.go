package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/windowbot/internal/server"
	"github.com/alanyoungcy/windowbot/internal/server/handler"
	"github.com/alanyoungcy/windowbot/internal/server/ws"
	"github.com/alanyoungcy/windowbot/internal/service"
	"github.com/alanyoungcy/windowbot/internal/window"
)

func (a *App) trackerConfig() window.Config {
	w := a.cfg.Window
	return window.Config{
		SlugPrefix:      w.SlugPrefix,
		Duration:        w.Duration.Duration,
		SettlementDelay: w.SettlementDelay.Duration,
		TickInterval:    w.TickInterval.Duration,
		Records:         w.Records,
	}
}

// TrackMode runs the tracker alone, reporting through the log.
func (a *App) TrackMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting track mode")

	tracker := window.NewTracker(a.trackerConfig(), deps.Fetcher, window.NewLogReporter(a.logger), a.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tracker.Run(ctx)
	})
	return g.Wait()
}

// FullMode runs the tracker with every wired sink, the daily rollup and the
// API server.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	summaries := service.NewSummaryService(deps.summarySinks(), a.cfg.Redis.LockTTL.Duration, a.logger)
	reporters := window.MultiReporter{window.NewLogReporter(a.logger), summaries}

	var tracker *window.Tracker
	var hub *ws.Hub
	if a.cfg.Server.Enabled {
		hub = ws.NewHub(deps.Bus, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			StartedAt: time.Now().UTC(),
			Snapshot: func() (service.StatusEvent, bool) {
				return currentStatus(tracker)
			},
		})
		// Without a bus the hub hears the tracker directly.
		if deps.Bus == nil {
			reporters = append(reporters, hub)
		}
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	tracker = window.NewTracker(a.trackerConfig(), deps.Fetcher, reporters, a.logger)
	g.Go(func() error {
		return tracker.Run(ctx)
	})

	if deps.Summaries != nil && deps.Archiver != nil && deps.BlobReader != nil && a.cfg.S3.RollupInterval.Duration > 0 {
		rollup := service.NewRollupService(deps.Summaries, deps.BlobReader, deps.Archiver, deps.Audit,
			a.cfg.S3.RollupInterval.Duration, a.logger)
		g.Go(func() error {
			return rollup.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, tracker, hub)
	}

	err := g.Wait()
	// Let in-flight summary fan-outs finish before the sinks are closed.
	summaries.Wait()
	return err
}

// startHTTPServer adds the API server and its shutdown watcher to g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, tracker *window.Tracker, hub *ws.Hub) {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(deps.Checks, a.logger),
		Status: handler.NewStatusHandler(tracker, a.cfg.Mode, time.Now()),
	}
	if deps.Summaries != nil {
		handlers.Windows = handler.NewWindowsHandler(deps.Summaries, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:               a.cfg.Server.Port,
		CORSOrigins:        a.cfg.Server.CORSOrigins,
		APIKey:             a.cfg.Server.APIKey,
		RateLimitPerMinute: a.cfg.Server.RateLimit,
	}, handlers, hub, deps.Limiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// currentStatus renders the tracker's latest state as a hello-frame status.
func currentStatus(tracker *window.Tracker) (service.StatusEvent, bool) {
	if tracker == nil {
		return service.StatusEvent{}, false
	}
	snap, ok := tracker.Snapshot()
	if !ok {
		return service.StatusEvent{}, false
	}
	return service.NewStatusEvent(window.StatusLine{
		Time:      time.Now(),
		Remaining: snap.Remaining,
		Slug:      snap.State.Slug,
		Phase:     snap.Phase,
		HasMarket: snap.HasMarket,
	}), true
}

