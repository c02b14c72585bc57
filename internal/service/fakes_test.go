package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type memStore struct {
	mu   sync.Mutex
	rows map[string]domain.GradedSummary
}

func newMemStore() *memStore { return &memStore{rows: map[string]domain.GradedSummary{}} }

func (m *memStore) Insert(_ context.Context, s domain.GradedSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[s.Slug]; ok {
		return domain.ErrAlreadyExists
	}
	m.rows[s.Slug] = s
	return nil
}

func (m *memStore) GetBySlug(_ context.Context, slug string) (domain.GradedSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[slug]
	if !ok {
		return domain.GradedSummary{}, domain.ErrNotFound
	}
	return s, nil
}

func (m *memStore) ListRecent(_ context.Context, opts domain.ListOpts) ([]domain.GradedSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.GradedSummary
	for _, s := range m.rows {
		if opts.Since != nil && s.StartTime.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && s.StartTime.After(*opts.Until) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

type memAudit struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (m *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (m *memAudit) count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e == event {
			n++
		}
	}
	return n
}

type memBus struct {
	mu        sync.Mutex
	published map[string]int
	streamed  map[string]int
}

func newMemBus() *memBus {
	return &memBus{published: map[string]int{}, streamed: map[string]int{}}
}

func (b *memBus) Publish(_ context.Context, channel string, _ []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel]++
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

func (b *memBus) StreamAppend(_ context.Context, stream string, _ []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streamed[stream]++
	return nil
}

func (b *memBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

type memLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

type memArchiver struct {
	mu      sync.Mutex
	paths   []string
	rollups map[string][]domain.GradedSummary
}

func (a *memArchiver) ArchiveSummary(_ context.Context, s domain.GradedSummary) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := "windows/" + s.Slug + ".json"
	a.paths = append(a.paths, p)
	return p, nil
}

func (a *memArchiver) Rollup(_ context.Context, day time.Time, s []domain.GradedSummary) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rollups == nil {
		a.rollups = map[string][]domain.GradedSummary{}
	}
	key := a.RollupKey(day)
	a.rollups[key] = s
	return key, nil
}

func (a *memArchiver) RollupKey(day time.Time) string {
	return "windows/" + day.Format("2006/01/02") + "/rollup.jsonl"
}

type memReader struct{ existing map[string]bool }

func (r memReader) Exists(_ context.Context, path string) (bool, error) {
	return r.existing[path], nil
}

type stubSender struct {
	mu     sync.Mutex
	titles []string
}

func (s *stubSender) Send(_ context.Context, title, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = append(s.titles, title)
	return nil
}

func (s *stubSender) Name() string { return "stub" }

func (s *stubSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.titles)
}
