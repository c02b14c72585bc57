package window

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

// base is the start of a 900-second bucket.
const base int64 = 1700000100

var errUpstream = errors.New("gamma: 502 bad gateway")

type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	failN   int // fail this many calls before succeeding
	endSkew time.Duration
	end     time.Time // overrides the computed end time when set
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(map[string]int)}
}

func (f *fakeFetcher) FetchMarket(_ context.Context, slug string) (domain.MarketRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[slug]++
	if f.failN > 0 {
		f.failN--
		return domain.MarketRecord{}, errUpstream
	}
	start, err := NewClock("", 0).ParseSlug(slug)
	if err != nil {
		return domain.MarketRecord{}, err
	}
	end := start.Add(DefaultDuration).Add(f.endSkew)
	if !f.end.IsZero() {
		end = f.end
	}
	return domain.MarketRecord{
		Slug:      slug,
		MarketID:  "m-" + slug,
		StartTime: start,
		EndTime:   end,
	}, nil
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type recordingReporter struct {
	statuses []StatusLine
	graded   []domain.GradedSummary
}

func (r *recordingReporter) Status(_ context.Context, line StatusLine) {
	r.statuses = append(r.statuses, line)
}

func (r *recordingReporter) Graded(_ context.Context, s domain.GradedSummary) {
	r.graded = append(r.graded, s)
}

func at(sec int64) time.Time { return time.Unix(sec, 0) }
