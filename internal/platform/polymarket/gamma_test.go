package polymarket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

const marketJSON = `[{
	"id": "512345",
	"question": "Bitcoin Up or Down - 15 min",
	"conditionId": "0xabc",
	"slug": "btc-updown-15m-1700000100",
	"active": "true",
	"closed": false,
	"outcomes": "[\"Up\",\"Down\"]",
	"outcomePrices": "[\"0.515\",\"0.485\"]",
	"clobTokenIds": "[\"111\",\"222\"]",
	"eventStartTime": "2023-11-14T22:15:00Z",
	"endDate": "2023-11-14T22:30:00Z"
}]`

func TestFetchMarket(t *testing.T) {
	var gotSlug string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotSlug = r.URL.Query().Get("slug")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(marketJSON))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL, time.Second)
	rec, err := g.FetchMarket(context.Background(), "btc-updown-15m-1700000100")
	if err != nil {
		t.Fatalf("FetchMarket: %v", err)
	}
	if gotSlug != "btc-updown-15m-1700000100" {
		t.Fatalf("slug query = %q", gotSlug)
	}
	if rec.MarketID != "512345" || rec.ConditionID != "0xabc" {
		t.Fatalf("ids = %q %q", rec.MarketID, rec.ConditionID)
	}
	if rec.TokenIDs != [2]string{"111", "222"} || rec.Outcomes != [2]string{"Up", "Down"} {
		t.Fatalf("tokens=%v outcomes=%v", rec.TokenIDs, rec.Outcomes)
	}
	if rec.OutcomePrices[0] != 0.515 {
		t.Fatalf("prices = %v", rec.OutcomePrices)
	}
	if rec.StartTime.Unix() != 1700000100 || rec.EndTime.Unix() != 1700001000 {
		t.Fatalf("start=%v end=%v", rec.StartTime, rec.EndTime)
	}
	if rec.FetchedAt.IsZero() {
		t.Fatal("FetchedAt not set")
	}
}

func TestFetchMarket_Errors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"empty list", http.StatusOK, `[]`, domain.ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, `slow down`, domain.ErrRateLimited},
		{"forbidden", http.StatusForbidden, `no`, domain.ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewGammaClient(srv.URL, time.Second).FetchMarket(context.Background(), "x")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestFetchMarket_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewGammaClient(srv.URL, time.Second).FetchMarket(context.Background(), "x"); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestToMarketRecord_LegacyFields(t *testing.T) {
	m := APIMarket{
		ID:            "1",
		EndDateISO:    "2023-11-14T22:30:00Z",
		Tokens:        []Token{{TokenID: "a", Outcome: "Yes"}, {TokenID: "b", Outcome: "No"}},
		OutcomePrices: "not json",
	}
	rec := m.ToMarketRecord()
	if rec.TokenIDs != [2]string{"a", "b"} || rec.Outcomes != [2]string{"Yes", "No"} {
		t.Fatalf("tokens=%v outcomes=%v", rec.TokenIDs, rec.Outcomes)
	}
	if !rec.HasEndTime() || rec.EndTime.Unix() != 1700001000 {
		t.Fatalf("end = %v", rec.EndTime)
	}
	if rec.OutcomePrices != [2]float64{} {
		t.Fatalf("prices = %v", rec.OutcomePrices)
	}
}

func TestParseTime(t *testing.T) {
	if got := parseTime("2023-11-14T22:30:00Z"); !got.Equal(time.Unix(1700001000, 0)) {
		t.Fatalf("RFC3339 = %v", got)
	}
	if got := parseTime("2023-11-14T22:30:00.5Z"); got.IsZero() {
		t.Fatal("RFC3339Nano rejected")
	}
	for _, s := range []string{"", "2023-11-14", "soon"} {
		if got := parseTime(s); !got.IsZero() {
			t.Errorf("parseTime(%q) = %v, want zero", s, got)
		}
	}
}
