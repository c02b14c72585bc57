package domain

import (
	"fmt"
	"strings"
	"time"
)

// ResultKind classifies how a sub-record's position finished.
type ResultKind string

const (
	ResultPaired   ResultKind = "PAIRED"
	ResultBail     ResultKind = "BAIL"
	ResultLopsided ResultKind = "LOPSIDED"
)

// ParseResultKind maps a string onto a ResultKind. Unknown values are rejected.
func ParseResultKind(s string) (ResultKind, error) {
	switch ResultKind(strings.ToUpper(strings.TrimSpace(s))) {
	case ResultPaired:
		return ResultPaired, nil
	case ResultBail:
		return ResultBail, nil
	case ResultLopsided:
		return ResultLopsided, nil
	}
	return "", fmt.Errorf("domain: unknown result kind %q", s)
}

// Outcome is the final classification of a window.
type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

// ParseOutcome maps a string onto an Outcome. Unknown values are rejected.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(strings.ToUpper(strings.TrimSpace(s))) {
	case OutcomeWin:
		return OutcomeWin, nil
	case OutcomeLoss:
		return OutcomeLoss, nil
	}
	return "", fmt.Errorf("domain: unknown outcome %q", s)
}

// Entry describes a position opened inside a window.
type Entry struct {
	Side     string
	Quantity float64
	Cost     float64
}

// ResultRecord is one independently populated result slot of a window. Entry
// and Result stay nil until a downstream writer fills them.
type ResultRecord struct {
	Label  string
	Entry  *Entry
	Result *ResultKind
	PnL    float64
}

// WindowState is the lifecycle record of the window currently being tracked.
type WindowState struct {
	Slug            string
	StartTime       time.Time
	EndTime         time.Time
	Records         []*ResultRecord
	SettlementPrice *float64
	Outcome         *Outcome

	graded  bool
	summary GradedSummary
}

// NewWindowState returns a fresh, ungraded state with one empty record per
// label.
func NewWindowState(slug string, start, end time.Time, labels []string) *WindowState {
	records := make([]*ResultRecord, 0, len(labels))
	for _, l := range labels {
		records = append(records, &ResultRecord{Label: l})
	}
	return &WindowState{
		Slug:      slug,
		StartTime: start,
		EndTime:   end,
		Records:   records,
	}
}

// Graded reports whether the window has been graded.
func (s *WindowState) Graded() bool {
	return s.graded
}

// Summary returns the summary stored by the grade operation. The second return
// is false while the state is ungraded.
func (s *WindowState) Summary() (GradedSummary, bool) {
	return s.summary, s.graded
}

// MarkGraded freezes the state with the given summary. It returns false and
// leaves the state unchanged when the state is already graded.
func (s *WindowState) MarkGraded(summary GradedSummary) bool {
	if s.graded {
		return false
	}
	s.graded = true
	s.summary = summary
	return true
}

// Record returns the sub-record with the given label, or nil.
func (s *WindowState) Record(label string) *ResultRecord {
	for _, r := range s.Records {
		if r.Label == label {
			return r
		}
	}
	return nil
}

// Clone returns a deep copy suitable for handing to other goroutines.
func (s *WindowState) Clone() WindowState {
	out := *s
	out.Records = make([]*ResultRecord, 0, len(s.Records))
	for _, r := range s.Records {
		rc := *r
		if r.Entry != nil {
			e := *r.Entry
			rc.Entry = &e
		}
		if r.Result != nil {
			k := *r.Result
			rc.Result = &k
		}
		out.Records = append(out.Records, &rc)
	}
	if s.SettlementPrice != nil {
		p := *s.SettlementPrice
		out.SettlementPrice = &p
	}
	if s.Outcome != nil {
		o := *s.Outcome
		out.Outcome = &o
	}
	out.summary.Records = append([]RecordSummary(nil), s.summary.Records...)
	return out
}

// RecordSummary is the rendered form of one ResultRecord.
type RecordSummary struct {
	Label  string  `json:"label"`
	Entry  string  `json:"entry"`
	Result string  `json:"result"`
	PnL    float64 `json:"pnl"`
}

// GradedSummary is the finalized report of one window.
type GradedSummary struct {
	Slug            string          `json:"slug"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	Records         []RecordSummary `json:"records"`
	SettlementPrice string          `json:"settlement_price"`
	Outcome         string          `json:"outcome"`
	TotalPnL        float64         `json:"total_pnl"`
	GradedAt        time.Time       `json:"graded_at"`
}
