package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// SummaryStore persists graded window summaries. Insert is idempotent per slug:
// a second insert for the same slug returns ErrAlreadyExists.
type SummaryStore interface {
	Insert(ctx context.Context, s GradedSummary) error
	GetBySlug(ctx context.Context, slug string) (GradedSummary, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]GradedSummary, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
