package window

import (
	"context"
	"errors"
	"testing"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

func TestMarketCache_HitDoesNotFetch(t *testing.T) {
	f := newFakeFetcher()
	c := NewMarketCache(f)
	slug := NewClock("", 0).SlugAt(at(base))

	for i := 0; i < 5; i++ {
		rec, err := c.Get(context.Background(), slug)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if rec.Slug != slug {
			t.Fatalf("rec.Slug = %q", rec.Slug)
		}
	}
	if got := f.total(); got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}
}

func TestMarketCache_FailureKeepsPreviousEntry(t *testing.T) {
	f := newFakeFetcher()
	c := NewMarketCache(f)
	clock := NewClock("", 0)
	s1 := clock.SlugAt(at(base))
	s2 := clock.SlugAt(at(base + 900))

	if _, err := c.Get(context.Background(), s1); err != nil {
		t.Fatalf("Get s1: %v", err)
	}

	f.failN = 1
	_, err := c.Get(context.Background(), s2)
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
	if !errors.Is(err, errUpstream) {
		t.Fatalf("err = %v, want wrapped upstream error", err)
	}

	rec, ok := c.Peek()
	if !ok || rec.Slug != s1 {
		t.Fatalf("Peek = %+v %v, want %s", rec, ok, s1)
	}
	if _, err := c.Get(context.Background(), s1); err != nil {
		t.Fatalf("Get s1 after failure: %v", err)
	}
	if got := f.calls[s1]; got != 1 {
		t.Fatalf("s1 fetches = %d, want 1", got)
	}

	st := c.Stats()
	if st.Fetches != 2 || st.Failures != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestMarketCache_RetriesUntilSuccess(t *testing.T) {
	f := newFakeFetcher()
	f.failN = 2
	c := NewMarketCache(f)
	slug := NewClock("", 0).SlugAt(at(base))

	for i := 0; i < 2; i++ {
		if _, err := c.Get(context.Background(), slug); err == nil {
			t.Fatalf("attempt %d: expected error", i)
		}
		if _, ok := c.Peek(); ok {
			t.Fatalf("attempt %d: cache populated after failure", i)
		}
	}
	if _, err := c.Get(context.Background(), slug); err != nil {
		t.Fatalf("third attempt: %v", err)
	}
	if _, err := c.Get(context.Background(), slug); err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if got := f.calls[slug]; got != 3 {
		t.Fatalf("fetches = %d, want 3", got)
	}
}

func TestMarketCache_Invalidate(t *testing.T) {
	f := newFakeFetcher()
	c := NewMarketCache(f)
	slug := NewClock("", 0).SlugAt(at(base))

	_, _ = c.Get(context.Background(), slug)
	c.Invalidate()
	if _, ok := c.Peek(); ok {
		t.Fatal("Peek after Invalidate returned a record")
	}
	_, _ = c.Get(context.Background(), slug)
	if got := f.calls[slug]; got != 2 {
		t.Fatalf("fetches = %d, want 2", got)
	}
}
