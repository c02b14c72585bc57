package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
	"github.com/alanyoungcy/windowbot/internal/notify"
	"github.com/alanyoungcy/windowbot/internal/window"
)

func testSummary(slug string) domain.GradedSummary {
	return domain.GradedSummary{
		Slug:            slug,
		StartTime:       time.Unix(1700000100, 0).UTC(),
		EndTime:         time.Unix(1700001000, 0).UTC(),
		SettlementPrice: window.Placeholder,
		Outcome:         window.Placeholder,
		TotalPnL:        1.5,
	}
}

type harness struct {
	svc      *SummaryService
	store    *memStore
	audit    *memAudit
	bus      *memBus
	archiver *memArchiver
	sender   *stubSender
}

func newHarness(locks domain.LockManager) harness {
	h := harness{
		store:    newMemStore(),
		audit:    &memAudit{},
		bus:      newMemBus(),
		archiver: &memArchiver{},
		sender:   &stubSender{},
	}
	h.svc = NewSummaryService(SummarySinks{
		Store:    h.store,
		Audit:    h.audit,
		Archiver: h.archiver,
		Bus:      h.bus,
		Locks:    locks,
		Notifier: notify.NewNotifier([]notify.Sender{h.sender}, nil, quietLogger()),
	}, time.Minute, quietLogger())
	return h
}

func TestSummaryService_FansOutOnce(t *testing.T) {
	h := newHarness(nil)
	ctx := context.Background()

	h.svc.Graded(ctx, testSummary("w1"))
	h.svc.Wait()
	h.svc.Graded(ctx, testSummary("w1"))
	h.svc.Wait()

	if _, err := h.store.GetBySlug(ctx, "w1"); err != nil {
		t.Fatalf("not stored: %v", err)
	}
	if len(h.archiver.paths) != 1 {
		t.Fatalf("archived %d times", len(h.archiver.paths))
	}
	if h.bus.published[domain.ChannelWindowGraded] != 1 || h.bus.streamed[domain.StreamWindowGraded] != 1 {
		t.Fatalf("bus = %+v %+v", h.bus.published, h.bus.streamed)
	}
	if h.sender.count() != 1 {
		t.Fatalf("notified %d times", h.sender.count())
	}
	if h.audit.count("window_graded") != 1 {
		t.Fatalf("audited %d times", h.audit.count("window_graded"))
	}
}

func TestSummaryService_LockHeldSkips(t *testing.T) {
	locks := &memLocks{held: map[string]bool{"graded:w1": true}}
	h := newHarness(locks)

	h.svc.Graded(context.Background(), testSummary("w1"))
	h.svc.Wait()

	if _, err := h.store.GetBySlug(context.Background(), "w1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("stored despite held lock: %v", err)
	}
	if h.sender.count() != 0 {
		t.Fatal("notified despite held lock")
	}
}

func TestSummaryService_SharedLockKeepsClaimAcrossReplicas(t *testing.T) {
	locks := &memLocks{held: map[string]bool{}}
	sender := &stubSender{}
	buses := []*memBus{newMemBus(), newMemBus()}
	var replicas []*SummaryService
	for _, b := range buses {
		replicas = append(replicas, NewSummaryService(SummarySinks{
			Bus:      b,
			Locks:    locks,
			Notifier: notify.NewNotifier([]notify.Sender{sender}, nil, quietLogger()),
		}, time.Minute, quietLogger()))
	}

	for _, svc := range replicas {
		svc.Graded(context.Background(), testSummary("w1"))
		svc.Wait()
	}

	published := buses[0].published[domain.ChannelWindowGraded] + buses[1].published[domain.ChannelWindowGraded]
	if published != 1 {
		t.Fatalf("published %d times across replicas", published)
	}
	if sender.count() != 1 {
		t.Fatalf("notified %d times", sender.count())
	}
	locks.mu.Lock()
	held := locks.held["graded:w1"]
	locks.mu.Unlock()
	if !held {
		t.Fatal("claim released after a completed fan-out")
	}
}

func TestSummaryService_CancelledTickContextStillPublishes(t *testing.T) {
	h := newHarness(&memLocks{held: map[string]bool{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.svc.Graded(ctx, testSummary("w2"))
	h.svc.Wait()
	if _, err := h.store.GetBySlug(context.Background(), "w2"); err != nil {
		t.Fatalf("summary lost on shutdown: %v", err)
	}
}

func TestSummaryService_FetchAlertOncePerSlug(t *testing.T) {
	h := newHarness(nil)
	ctx := context.Background()
	fail := errors.New("gamma down")

	for i := 0; i < 3; i++ {
		h.svc.Status(ctx, window.StatusLine{Slug: "a", FetchErr: fail})
	}
	h.svc.Status(ctx, window.StatusLine{Slug: "a"})
	h.svc.Status(ctx, window.StatusLine{Slug: "b", FetchErr: fail})
	h.svc.Wait()

	if h.sender.count() != 2 {
		t.Fatalf("alerts = %d, want 2", h.sender.count())
	}
	if h.audit.count("fetch_failed") != 2 {
		t.Fatalf("audits = %d", h.audit.count("fetch_failed"))
	}
	if h.bus.published[domain.ChannelWindowStatus] != 5 {
		t.Fatalf("status broadcasts = %d", h.bus.published[domain.ChannelWindowStatus])
	}
}

func TestNewStatusEvent(t *testing.T) {
	ev := NewStatusEvent(window.StatusLine{
		Time:       time.Unix(1700000100, 0),
		Slug:       "s",
		Remaining:  75 * time.Second,
		Phase:      window.PhaseActive,
		Transition: window.SameWindow,
		FetchErr:   errors.New("x"),
	})
	if ev.Remaining != "01:15" || ev.RemainingSeconds != 75 || ev.Transition != "SAME_WINDOW" || ev.Error != "x" {
		t.Fatalf("event = %+v", ev)
	}
}
