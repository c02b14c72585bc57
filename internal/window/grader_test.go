package window

import (
	"testing"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

func TestGrade_AllFieldsNull(t *testing.T) {
	st := domain.NewWindowState("s", at(base), at(base+900), []string{"a", "b"})

	s, ok := Grade(st, at(base+903))
	if !ok {
		t.Fatal("Grade returned ok=false on fresh state")
	}
	if !st.Graded() {
		t.Fatal("state not marked graded")
	}
	if s.TotalPnL != 0 {
		t.Fatalf("TotalPnL = %v", s.TotalPnL)
	}
	if s.SettlementPrice != Placeholder || s.Outcome != Placeholder {
		t.Fatalf("settle=%q outcome=%q", s.SettlementPrice, s.Outcome)
	}
	for _, r := range s.Records {
		if r.Entry != Placeholder || r.Result != Placeholder {
			t.Fatalf("record %s: entry=%q result=%q", r.Label, r.Entry, r.Result)
		}
	}
}

func TestGrade_RendersPopulatedFields(t *testing.T) {
	st := domain.NewWindowState("s", at(base), at(base+900), []string{"a", "b"})
	paired := domain.ResultPaired
	win := domain.OutcomeWin
	price := 97123.5
	st.Records[0].Entry = &domain.Entry{Side: "Up", Quantity: 10, Cost: 4.5}
	st.Records[0].Result = &paired
	st.Records[0].PnL = 1.25
	st.Records[1].PnL = -0.5
	st.SettlementPrice = &price
	st.Outcome = &win

	s, _ := Grade(st, at(base+903))
	if s.TotalPnL != 0.75 {
		t.Fatalf("TotalPnL = %v, want 0.75", s.TotalPnL)
	}
	if got := s.Records[0].Entry; got != "Up 10 @ $4.50" {
		t.Fatalf("entry = %q", got)
	}
	if s.Records[0].Result != "PAIRED" || s.Records[1].Result != Placeholder {
		t.Fatalf("results = %q %q", s.Records[0].Result, s.Records[1].Result)
	}
	if s.SettlementPrice != "97123.5" || s.Outcome != "WIN" {
		t.Fatalf("settle=%q outcome=%q", s.SettlementPrice, s.Outcome)
	}
}

func TestGrade_Idempotent(t *testing.T) {
	st := domain.NewWindowState("s", at(base), at(base+900), []string{"a"})
	first, ok := Grade(st, at(base+903))
	if !ok {
		t.Fatal("first grade failed")
	}

	st.Records[0].PnL = 99
	second, ok := Grade(st, at(base+950))
	if ok {
		t.Fatal("second grade reported ok")
	}
	if second.TotalPnL != first.TotalPnL || !second.GradedAt.Equal(first.GradedAt) {
		t.Fatalf("summary changed: %+v vs %+v", second, first)
	}
}
