package postgres

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

// listQuery appends ListOpts filtering, ordering and paging to base. timeCol
// is the column the Since/Until bounds apply to.
func listQuery(base, timeCol string, opts domain.ListOpts) (string, []any) {
	var b strings.Builder
	b.WriteString(base)
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	b.WriteString(" WHERE 1=1")
	if opts.Since != nil {
		b.WriteString(" AND " + timeCol + " >= " + arg(*opts.Since))
	}
	if opts.Until != nil {
		b.WriteString(" AND " + timeCol + " <= " + arg(*opts.Until))
	}
	b.WriteString(" ORDER BY " + timeCol + " DESC")
	if opts.Limit > 0 {
		b.WriteString(" LIMIT " + arg(opts.Limit))
	}
	if opts.Offset > 0 {
		b.WriteString(" OFFSET " + arg(opts.Offset))
	}
	return b.String(), args
}
