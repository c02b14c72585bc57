// Package window implements the lifecycle of fixed-duration market windows:
// slug derivation, metadata caching, transition detection, and grading.
package window

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

const (
	// DefaultDuration is the length of one window.
	DefaultDuration = 900 * time.Second
	// DefaultSettlementDelay is how long to wait after a window reaches zero
	// before grading it.
	DefaultSettlementDelay = 3 * time.Second
	// DefaultSlugPrefix is the Polymarket slug stem for 15-minute BTC markets.
	DefaultSlugPrefix = "btc-updown-15m"
)

// Clock maps wall-clock time onto window slugs. The zero value is not usable;
// build one with NewClock.
type Clock struct {
	prefix   string
	duration time.Duration
}

// NewClock returns a Clock for the given slug prefix and window duration.
// Durations are truncated to whole seconds; anything below one second falls
// back to DefaultDuration.
func NewClock(prefix string, duration time.Duration) Clock {
	duration = duration.Truncate(time.Second)
	if duration < time.Second {
		duration = DefaultDuration
	}
	if prefix == "" {
		prefix = DefaultSlugPrefix
	}
	return Clock{prefix: prefix, duration: duration}
}

// Duration returns the window length.
func (c Clock) Duration() time.Duration { return c.duration }

// Prefix returns the slug stem.
func (c Clock) Prefix() string { return c.prefix }

// BucketStart returns the start of the window containing now.
func (c Clock) BucketStart(now time.Time) time.Time {
	step := int64(c.duration / time.Second)
	return time.Unix(floorDiv(now.Unix(), step)*step, 0).UTC()
}

// WindowEnd returns the nominal close of the window starting at start.
func (c Clock) WindowEnd(start time.Time) time.Time {
	return start.Add(c.duration)
}

// SlugAt returns the slug of the window containing now.
func (c Clock) SlugAt(now time.Time) string {
	return c.slugFor(c.BucketStart(now))
}

func (c Clock) slugFor(start time.Time) string {
	return c.prefix + "-" + strconv.FormatInt(start.Unix(), 10)
}

// ParseSlug recovers the window start embedded in slug.
func (c Clock) ParseSlug(slug string) (time.Time, error) {
	rest, ok := strings.CutPrefix(slug, c.prefix+"-")
	if !ok {
		return time.Time{}, fmt.Errorf("window: %w: %q", domain.ErrInvalidSlug, slug)
	}
	ts, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("window: %w: %q", domain.ErrInvalidSlug, slug)
	}
	step := int64(c.duration / time.Second)
	if floorDiv(ts, step)*step != ts {
		return time.Time{}, fmt.Errorf("window: %w: %q is not aligned to %s", domain.ErrInvalidSlug, slug, c.duration)
	}
	return time.Unix(ts, 0).UTC(), nil
}

// TimeRemaining returns how long is left until end, in whole seconds, clamped
// at zero.
func TimeRemaining(end, now time.Time) time.Duration {
	rem := end.Sub(now)
	if rem <= 0 {
		return 0
	}
	return rem.Truncate(time.Second)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
