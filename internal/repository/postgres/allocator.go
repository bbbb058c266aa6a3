package postgres

import (
	"context"
	"fmt"

	"github.com/gatewarden/authdb/internal/errs"
)

// SequenceAllocator allocates access ids from a NO CYCLE Postgres sequence.
// Sequence values are globally unique and strictly increasing, which replaces
// the read-max-then-insert pattern that races under concurrent issuance.
type SequenceAllocator struct{ db *DB }

// NewSequenceAllocator constructs an allocator over token_access_id_seq.
func NewSequenceAllocator(db *DB) *SequenceAllocator { return &SequenceAllocator{db: db} }

// NextN allocates n ids in ascending order. Sequence exhaustion is a hard
// failure; ids are never reused.
func (s *SequenceAllocator) NextN(ctx context.Context, n int) ([]int32, error) {
	if n <= 0 {
		return nil, fmt.Errorf("allocate %d ids", n)
	}
	const q = `SELECT nextval('token_access_id_seq') FROM generate_series(1, $1)`
	rows, err := s.db.Pool.Query(ctx, q, n)
	if err != nil {
		if isSequenceExhausted(err) {
			return nil, errs.ErrIDExhausted
		}
		return nil, err
	}
	defer rows.Close()

	out := make([]int32, 0, n)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, int32(id))
	}
	if err := rows.Err(); err != nil {
		if isSequenceExhausted(err) {
			return nil, errs.ErrIDExhausted
		}
		return nil, err
	}
	if len(out) != n {
		return nil, fmt.Errorf("allocated %d of %d ids", len(out), n)
	}
	return out, nil
}
