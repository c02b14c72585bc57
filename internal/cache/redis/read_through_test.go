package redis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

type memMirror struct {
	recs    map[string]domain.MarketRecord
	getErr  error
	setErr  error
	setHits int
}

func (m *memMirror) Set(_ context.Context, rec domain.MarketRecord) error {
	m.setHits++
	if m.setErr != nil {
		return m.setErr
	}
	m.recs[rec.Slug] = rec
	return nil
}

func (m *memMirror) Get(_ context.Context, slug string) (domain.MarketRecord, error) {
	if m.getErr != nil {
		return domain.MarketRecord{}, m.getErr
	}
	rec, ok := m.recs[slug]
	if !ok {
		return domain.MarketRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *memMirror) Invalidate(_ context.Context, slug string) error {
	delete(m.recs, slug)
	return nil
}

type countingFetcher struct {
	calls int
	err   error
}

func (f *countingFetcher) FetchMarket(_ context.Context, slug string) (domain.MarketRecord, error) {
	f.calls++
	if f.err != nil {
		return domain.MarketRecord{}, f.err
	}
	return domain.MarketRecord{MarketID: "m1", EndTime: time.Unix(1700001000, 0)}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReadThrough_MirrorsUpstream(t *testing.T) {
	mirror := &memMirror{recs: map[string]domain.MarketRecord{}}
	up := &countingFetcher{}
	rt := NewReadThrough(up, mirror, quietLogger())

	for i := 0; i < 3; i++ {
		rec, err := rt.FetchMarket(context.Background(), "s1")
		if err != nil {
			t.Fatalf("FetchMarket: %v", err)
		}
		if rec.Slug != "s1" || rec.MarketID != "m1" {
			t.Fatalf("rec = %+v", rec)
		}
	}
	if up.calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", up.calls)
	}
}

func TestReadThrough_MirrorFailuresAreSoft(t *testing.T) {
	mirror := &memMirror{
		recs:   map[string]domain.MarketRecord{},
		getErr: errors.New("conn refused"),
		setErr: errors.New("conn refused"),
	}
	up := &countingFetcher{}
	rt := NewReadThrough(up, mirror, quietLogger())

	if _, err := rt.FetchMarket(context.Background(), "s1"); err != nil {
		t.Fatalf("FetchMarket: %v", err)
	}
	if up.calls != 1 || mirror.setHits != 1 {
		t.Fatalf("upstream=%d sets=%d", up.calls, mirror.setHits)
	}
}

func TestReadThrough_UpstreamErrorNotMirrored(t *testing.T) {
	mirror := &memMirror{recs: map[string]domain.MarketRecord{}}
	up := &countingFetcher{err: domain.ErrRateLimited}
	rt := NewReadThrough(up, mirror, quietLogger())

	if _, err := rt.FetchMarket(context.Background(), "s1"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v", err)
	}
	if mirror.setHits != 0 {
		t.Fatalf("mirrored a failed fetch")
	}
}

func TestClientKey(t *testing.T) {
	c := NewFromRedis(nil, "windowbot:")
	if got := c.key("window", "market", "s1"); got != "windowbot:window:market:s1" {
		t.Fatalf("key = %q", got)
	}
	if got := NewFromRedis(nil, "").key("lock", "graded:s1"); got != "lock:graded:s1" {
		t.Fatalf("key = %q", got)
	}
}
