package postgres

import (
	"fmt"
	"strings"
)

// assignments accumulates SET clauses and arguments for partial updates,
// so every repository shares one builder instead of duplicating per-table
// string assembly.
type assignments struct {
	cols []string
	args []any
}

// set adds one column assignment bound to the next placeholder.
func (a *assignments) set(col string, val any) {
	a.args = append(a.args, val)
	a.cols = append(a.cols, fmt.Sprintf("%s=$%d", col, len(a.args)))
}

// empty reports whether no field was supplied.
func (a *assignments) empty() bool { return len(a.cols) == 0 }

// bind appends a non-SET argument (e.g. the WHERE key) and returns its placeholder.
func (a *assignments) bind(val any) string {
	a.args = append(a.args, val)
	return fmt.Sprintf("$%d", len(a.args))
}

// setClause renders the comma-joined SET list.
func (a *assignments) setClause() string { return strings.Join(a.cols, ", ") }
