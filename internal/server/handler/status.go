package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/windowbot/internal/window"
)

// Snapshotter exposes the live window. *window.Tracker satisfies it.
type Snapshotter interface {
	Snapshot() (window.Snapshot, bool)
}

// StatusHandler reports the window currently being tracked.
type StatusHandler struct {
	tracker   Snapshotter
	mode      string
	startedAt time.Time
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(tracker Snapshotter, mode string, startedAt time.Time) *StatusHandler {
	return &StatusHandler{tracker: tracker, mode: mode, startedAt: startedAt}
}

type recordView struct {
	Label    string   `json:"label"`
	Side     string   `json:"side,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`
	Cost     *float64 `json:"cost,omitempty"`
	Result   string   `json:"result,omitempty"`
	PnL      float64  `json:"pnl"`
}

type marketView struct {
	MarketID      string     `json:"market_id"`
	ConditionID   string     `json:"condition_id"`
	Question      string     `json:"question"`
	Outcomes      [2]string  `json:"outcomes"`
	TokenIDs      [2]string  `json:"token_ids"`
	OutcomePrices [2]float64 `json:"outcome_prices"`
	EndTime       time.Time  `json:"end_time"`
	FetchedAt     time.Time  `json:"fetched_at"`
}

type statusView struct {
	Mode             string       `json:"mode"`
	UptimeSeconds    int64        `json:"uptime_seconds"`
	Slug             string       `json:"slug"`
	StartTime        time.Time    `json:"start_time"`
	EndTime          time.Time    `json:"end_time"`
	Remaining        string       `json:"remaining"`
	RemainingSeconds int64        `json:"remaining_seconds"`
	Phase            string       `json:"phase"`
	Records          []recordView `json:"records"`
	SettlementPrice  *float64     `json:"settlement_price"`
	Outcome          string       `json:"outcome,omitempty"`
	Market           *marketView  `json:"market"`
}

// GetStatus returns the live window state.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.tracker.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "tracker has not ticked yet")
		return
	}

	st := snap.State
	v := statusView{
		Mode:             h.mode,
		UptimeSeconds:    int64(time.Since(h.startedAt) / time.Second),
		Slug:             st.Slug,
		StartTime:        st.StartTime,
		EndTime:          st.EndTime,
		Remaining:        window.FormatCountdown(snap.Remaining),
		RemainingSeconds: int64(snap.Remaining / time.Second),
		Phase:            string(snap.Phase),
		Records:          make([]recordView, 0, len(st.Records)),
		SettlementPrice:  st.SettlementPrice,
	}
	if st.Outcome != nil {
		v.Outcome = string(*st.Outcome)
	}
	for _, rec := range st.Records {
		rv := recordView{Label: rec.Label, PnL: rec.PnL}
		if rec.Entry != nil {
			rv.Side = rec.Entry.Side
			rv.Quantity = &rec.Entry.Quantity
			rv.Cost = &rec.Entry.Cost
		}
		if rec.Result != nil {
			rv.Result = string(*rec.Result)
		}
		v.Records = append(v.Records, rv)
	}
	if snap.HasMarket {
		m := snap.Market
		v.Market = &marketView{
			MarketID:      m.MarketID,
			ConditionID:   m.ConditionID,
			Question:      m.Question,
			Outcomes:      m.Outcomes,
			TokenIDs:      m.TokenIDs,
			OutcomePrices: m.OutcomePrices,
			EndTime:       m.EndTime,
			FetchedAt:     m.FetchedAt,
		}
	}
	writeJSON(w, http.StatusOK, v)
}
