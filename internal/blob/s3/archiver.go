package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

// rollupPartSize is the multipart part size for daily rollups.
const rollupPartSize int64 = 8 * 1024 * 1024

// Archiver writes graded windows to object storage.
//
// Layout:
//
//	windows/YYYY/MM/DD/{slug}.json    one summary per window
//	windows/YYYY/MM/DD/rollup.jsonl   every window that started that day
type Archiver struct {
	writer domain.BlobWriter
}

// NewArchiver returns an Archiver on writer.
func NewArchiver(writer domain.BlobWriter) *Archiver {
	return &Archiver{writer: writer}
}

// SummaryPath returns the object key of a single summary.
func SummaryPath(s domain.GradedSummary) string {
	return dayPrefix(s.StartTime) + s.Slug + ".json"
}

// RollupPath returns the object key of the rollup for day.
func RollupPath(day time.Time) string {
	return dayPrefix(day) + "rollup.jsonl"
}

// RollupKey is RollupPath as a method, for callers holding an Archiver.
func (a *Archiver) RollupKey(day time.Time) string {
	return RollupPath(day)
}

func dayPrefix(t time.Time) string {
	return "windows/" + t.UTC().Format("2006/01/02") + "/"
}

// ArchiveSummary uploads s as indented JSON and returns its key.
func (a *Archiver) ArchiveSummary(ctx context.Context, s domain.GradedSummary) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal summary %s: %w", s.Slug, err)
	}
	path := SummaryPath(s)
	if err := a.writer.Put(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		return "", err
	}
	return path, nil
}

// Rollup uploads summaries as JSON lines under day's rollup key. An empty
// slice writes nothing and returns an empty key.
func (a *Archiver) Rollup(ctx context.Context, day time.Time, summaries []domain.GradedSummary) (string, error) {
	if len(summaries) == 0 {
		return "", nil
	}
	buf, err := marshalJSONL(summaries)
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal rollup: %w", err)
	}
	path := RollupPath(day)
	if err := a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), rollupPartSize); err != nil {
		return "", err
	}
	return path, nil
}

func marshalJSONL[T any](items []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range items {
		if err := enc.Encode(items[i]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
