package window

import (
	"strconv"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

// Placeholder is rendered for any field still unset at grading time.
const Placeholder = "n/a"

// Grade renders st into a summary and marks it graded. If st is already
// graded, the stored summary is returned with ok=false and st is not touched.
// Grade performs no I/O.
func Grade(st *domain.WindowState, at time.Time) (summary domain.GradedSummary, ok bool) {
	if prev, graded := st.Summary(); graded {
		return prev, false
	}

	summary = domain.GradedSummary{
		Slug:            st.Slug,
		StartTime:       st.StartTime,
		EndTime:         st.EndTime,
		Records:         make([]domain.RecordSummary, 0, len(st.Records)),
		SettlementPrice: Placeholder,
		Outcome:         Placeholder,
		GradedAt:        at.UTC(),
	}

	for _, r := range st.Records {
		rs := domain.RecordSummary{
			Label:  r.Label,
			Entry:  Placeholder,
			Result: Placeholder,
			PnL:    r.PnL,
		}
		if r.Entry != nil {
			rs.Entry = formatEntry(*r.Entry)
		}
		if r.Result != nil {
			rs.Result = string(*r.Result)
		}
		summary.TotalPnL += r.PnL
		summary.Records = append(summary.Records, rs)
	}
	if st.SettlementPrice != nil {
		summary.SettlementPrice = strconv.FormatFloat(*st.SettlementPrice, 'f', -1, 64)
	}
	if st.Outcome != nil {
		summary.Outcome = string(*st.Outcome)
	}

	st.MarkGraded(summary)
	return summary, true
}

func formatEntry(e domain.Entry) string {
	side := e.Side
	if side == "" {
		side = Placeholder
	}
	return side + " " + strconv.FormatFloat(e.Quantity, 'f', -1, 64) +
		" @ $" + strconv.FormatFloat(e.Cost, 'f', 2, 64)
}
