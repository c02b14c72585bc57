package window

import (
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

// Transition is the classification of one tick.
type Transition int

const (
	SameWindow Transition = iota
	NewWindow
	WindowEnding
)

func (t Transition) String() string {
	switch t {
	case SameWindow:
		return "SAME_WINDOW"
	case NewWindow:
		return "NEW_WINDOW"
	case WindowEnding:
		return "WINDOW_ENDING"
	}
	return "UNKNOWN"
}

// Phase is the lifecycle position of a WindowState.
type Phase string

const (
	PhaseFresh             Phase = "FRESH"
	PhaseActive            Phase = "ACTIVE"
	PhasePendingSettlement Phase = "PENDING_SETTLEMENT"
	PhaseGraded            Phase = "GRADED"
)

// Detector classifies ticks and owns the settlement-delay timer. The delay is
// measured in elapsed wall-clock time since remaining was first observed at
// zero, so it does not depend on tick cadence.
type Detector struct {
	delay    time.Duration
	zeroSlug string
	zeroAt   time.Time
}

// NewDetector returns a Detector with the given settlement delay.
func NewDetector(delay time.Duration) *Detector {
	if delay < 0 {
		delay = 0
	}
	return &Detector{delay: delay}
}

// Classify compares slug against the state's slug and, within the same window,
// decides whether the settlement delay has run out.
func (d *Detector) Classify(now time.Time, slug string, remaining time.Duration, st *domain.WindowState) Transition {
	if st == nil || slug != st.Slug {
		d.reset()
		return NewWindow
	}
	if st.Graded() || remaining > 0 {
		return SameWindow
	}

	if d.zeroSlug != st.Slug {
		d.zeroSlug = st.Slug
		d.zeroAt = now
	}
	if now.Sub(d.zeroAt) >= d.delay {
		return WindowEnding
	}
	return SameWindow
}

// Phase reports the lifecycle phase of st given the current remaining time.
func (d *Detector) Phase(st *domain.WindowState, remaining time.Duration) Phase {
	switch {
	case st.Graded():
		return PhaseGraded
	case remaining == 0:
		return PhasePendingSettlement
	case isUntouched(st):
		return PhaseFresh
	default:
		return PhaseActive
	}
}

// ZeroObservedAt returns when remaining was first seen at zero for slug.
func (d *Detector) ZeroObservedAt(slug string) (time.Time, bool) {
	if d.zeroSlug != slug || slug == "" {
		return time.Time{}, false
	}
	return d.zeroAt, true
}

func (d *Detector) reset() {
	d.zeroSlug = ""
	d.zeroAt = time.Time{}
}

func isUntouched(st *domain.WindowState) bool {
	if st.SettlementPrice != nil || st.Outcome != nil {
		return false
	}
	for _, r := range st.Records {
		if r.Entry != nil || r.Result != nil || r.PnL != 0 {
			return false
		}
	}
	return true
}
