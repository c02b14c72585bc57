package window

import (
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

func TestSlugAt_SameBucket(t *testing.T) {
	c := NewClock("", 0)
	want := "btc-updown-15m-1700000100"
	for _, off := range []int64{0, 1, 450, 898, 899} {
		if got := c.SlugAt(at(base + off)); got != want {
			t.Fatalf("offset %d: got %q, want %q", off, got, want)
		}
	}
}

func TestSlugAt_OrderedAcrossBuckets(t *testing.T) {
	c := NewClock("", 0)
	prev := c.SlugAt(at(base))
	for i := int64(1); i < 50; i++ {
		next := c.SlugAt(at(base + i*900 + i))
		if next == prev {
			t.Fatalf("bucket %d: slug did not change: %q", i, next)
		}
		if next < prev {
			t.Fatalf("bucket %d: %q sorts before %q", i, next, prev)
		}
		prev = next
	}
}

func TestSlugAt_NegativeTimestampFloors(t *testing.T) {
	c := NewClock("x", 0)
	if got := c.SlugAt(at(-1)); got != "x--900" {
		t.Fatalf("got %q", got)
	}
}

func TestParseSlug(t *testing.T) {
	c := NewClock("", 0)
	start, err := c.ParseSlug(c.SlugAt(at(base + 123)))
	if err != nil {
		t.Fatalf("ParseSlug: %v", err)
	}
	if start.Unix() != base {
		t.Fatalf("start = %d, want %d", start.Unix(), base)
	}

	for _, bad := range []string{"eth-updown-15m-1700000100", "btc-updown-15m-abc", "btc-updown-15m-1700000101"} {
		if _, err := c.ParseSlug(bad); !errors.Is(err, domain.ErrInvalidSlug) {
			t.Errorf("ParseSlug(%q) err = %v, want ErrInvalidSlug", bad, err)
		}
	}
}

func TestTimeRemaining(t *testing.T) {
	end := at(base + 900)
	cases := []struct {
		now  time.Time
		want time.Duration
	}{
		{at(base), 900 * time.Second},
		{end.Add(-1500 * time.Millisecond), time.Second},
		{end, 0},
		{end.Add(time.Second), 0},
		{end.Add(24 * time.Hour), 0},
	}
	for _, tc := range cases {
		if got := TimeRemaining(end, tc.now); got != tc.want {
			t.Errorf("TimeRemaining(now=%v) = %v, want %v", tc.now, got, tc.want)
		}
	}
}

func TestNewClock_Defaults(t *testing.T) {
	c := NewClock("", 500*time.Millisecond)
	if c.Duration() != DefaultDuration || c.Prefix() != DefaultSlugPrefix {
		t.Fatalf("got %s %s", c.Prefix(), c.Duration())
	}
	if got := c.WindowEnd(at(base)); got.Unix() != base+900 {
		t.Fatalf("WindowEnd = %d", got.Unix())
	}
}
