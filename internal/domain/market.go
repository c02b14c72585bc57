package domain

import (
	"context"
	"time"
)

// MarketRecord is the cached metadata for the market backing one window. It is
// replaced wholesale on every successful fetch and never mutated in place.
type MarketRecord struct {
	Slug          string
	MarketID      string
	ConditionID   string
	Question      string
	Outcomes      [2]string  // e.g. ["Up","Down"]
	TokenIDs      [2]string  // ERC-1155 token IDs
	OutcomePrices [2]float64 // last quoted prices, zero when absent
	Closed        bool
	StartTime     time.Time
	EndTime       time.Time
	FetchedAt     time.Time
}

// HasEndTime reports whether the upstream supplied an end timestamp.
func (m MarketRecord) HasEndTime() bool {
	return !m.EndTime.IsZero()
}

// MarketFetcher resolves a window slug to its market metadata.
type MarketFetcher interface {
	FetchMarket(ctx context.Context, slug string) (MarketRecord, error)
}
