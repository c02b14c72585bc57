package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

// SummaryStore implements domain.SummaryStore on the graded_windows table.
// Per-record results are stored as a JSONB array.
type SummaryStore struct {
	pool *pgxpool.Pool
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(pool *pgxpool.Pool) *SummaryStore {
	return &SummaryStore{pool: pool}
}

const summaryColumns = `slug, start_time, end_time, records, settlement_price, outcome, total_pnl, graded_at`

// Insert writes s. A window that is already stored is left untouched and
// domain.ErrAlreadyExists is returned.
func (st *SummaryStore) Insert(ctx context.Context, s domain.GradedSummary) error {
	records, err := json.Marshal(s.Records)
	if err != nil {
		return fmt.Errorf("postgres: marshal records %s: %w", s.Slug, err)
	}

	const query = `
		INSERT INTO graded_windows (` + summaryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (slug) DO NOTHING`
	tag, err := st.pool.Exec(ctx, query,
		s.Slug, s.StartTime, s.EndTime, records, s.SettlementPrice, s.Outcome, s.TotalPnL, s.GradedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert graded window %s: %w", s.Slug, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: graded window %s: %w", s.Slug, domain.ErrAlreadyExists)
	}
	return nil
}

// GetBySlug returns one graded window or domain.ErrNotFound.
func (st *SummaryStore) GetBySlug(ctx context.Context, slug string) (domain.GradedSummary, error) {
	row := st.pool.QueryRow(ctx, `SELECT `+summaryColumns+` FROM graded_windows WHERE slug = $1`, slug)
	s, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.GradedSummary{}, fmt.Errorf("postgres: graded window %s: %w", slug, domain.ErrNotFound)
		}
		return domain.GradedSummary{}, fmt.Errorf("postgres: get graded window %s: %w", slug, err)
	}
	return s, nil
}

// ListRecent returns graded windows ordered by start time, newest first.
func (st *SummaryStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.GradedSummary, error) {
	query, args := listQuery(`SELECT `+summaryColumns+` FROM graded_windows`, "start_time", opts)

	rows, err := st.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list graded windows: %w", err)
	}
	defer rows.Close()

	var out []domain.GradedSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan graded window: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list graded windows rows: %w", err)
	}
	return out, nil
}

func scanSummary(row pgx.Row) (domain.GradedSummary, error) {
	var s domain.GradedSummary
	var records []byte
	if err := row.Scan(&s.Slug, &s.StartTime, &s.EndTime, &records,
		&s.SettlementPrice, &s.Outcome, &s.TotalPnL, &s.GradedAt); err != nil {
		return domain.GradedSummary{}, err
	}
	if len(records) > 0 {
		if err := json.Unmarshal(records, &s.Records); err != nil {
			return domain.GradedSummary{}, fmt.Errorf("unmarshal records: %w", err)
		}
	}
	return s, nil
}

var _ domain.SummaryStore = (*SummaryStore)(nil)
