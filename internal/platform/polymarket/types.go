package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
// Gamma has served both camelCase and snake_case spellings of several fields;
// both are accepted.
type APIMarket struct {
	ID                string   `json:"id"`
	Question          string   `json:"question"`
	ConditionID       string   `json:"conditionId"`
	ConditionIDSnake  string   `json:"condition_id"`
	Slug              string   `json:"slug"`
	Active            flexBool `json:"active"`
	Closed            flexBool `json:"closed"`
	Outcomes          string   `json:"outcomes"`      // JSON-encoded: e.g. "[\"Up\",\"Down\"]"
	OutcomePrices     string   `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.5\",\"0.5\"]"
	ClobTokenIDs      string   `json:"clobTokenIds"`  // JSON-encoded: e.g. "[\"123\",\"456\"]"
	ClobTokenIDsSnake string   `json:"clob_token_ids"`
	Tokens            []Token  `json:"tokens"`
	StartDate         string   `json:"startDate"`
	EventStartTime    string   `json:"eventStartTime"`
	EndDate           string   `json:"endDate"`
	EndDateISO        string   `json:"end_date_iso"`
}

// Token represents a token entry inside the Gamma API market response.
type Token struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Winner  bool   `json:"winner"`
}

// ToMarketRecord converts a Gamma APIMarket to a domain.MarketRecord.
// Malformed optional fields are left at their zero value.
func (m *APIMarket) ToMarketRecord() domain.MarketRecord {
	rec := domain.MarketRecord{
		Slug:        m.Slug,
		MarketID:    m.ID,
		ConditionID: firstNonEmpty(m.ConditionID, m.ConditionIDSnake),
		Question:    m.Question,
		Outcomes:    [2]string{"Up", "Down"},
		Closed:      bool(m.Closed),
	}

	for i, o := range decodeStringList(m.Outcomes) {
		if i >= 2 {
			break
		}
		rec.Outcomes[i] = o
	}
	for i, p := range decodeStringList(m.OutcomePrices) {
		if i >= 2 {
			break
		}
		if v, err := strconv.ParseFloat(p, 64); err == nil {
			rec.OutcomePrices[i] = v
		}
	}

	ids := decodeStringList(firstNonEmpty(m.ClobTokenIDs, m.ClobTokenIDsSnake))
	for i, id := range ids {
		if i >= 2 {
			break
		}
		rec.TokenIDs[i] = id
	}
	// Older responses carry token ids only in the tokens array.
	if len(ids) == 0 {
		for i, tok := range m.Tokens {
			if i >= 2 {
				break
			}
			rec.TokenIDs[i] = tok.TokenID
			if tok.Outcome != "" {
				rec.Outcomes[i] = tok.Outcome
			}
		}
	}

	rec.StartTime = parseTime(firstNonEmpty(m.EventStartTime, m.StartDate))
	rec.EndTime = parseTime(firstNonEmpty(m.EndDate, m.EndDateISO))
	return rec
}

// decodeStringList unpacks Gamma's JSON-in-a-string arrays.
func decodeStringList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// parseTime accepts full timestamps only. A date-only value carries no time
// of day and is treated as absent.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
