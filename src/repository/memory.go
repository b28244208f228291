package repository

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryStore keeps rows in process memory. It backs tests and the
// "memory" sheet backend used for demos.
type InMemoryStore struct {
	mu    sync.RWMutex
	table []Row
}

func NewInMemoryStore(seed ...Row) *InMemoryStore {
	s := &InMemoryStore{}
	for _, row := range seed {
		s.table = append(s.table, copyRow(row))
	}
	return s
}

func (s *InMemoryStore) Rows(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("list rows", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]Row, 0, len(s.table))
	for _, row := range s.table {
		rows = append(rows, copyRow(row))
	}
	return rows, nil
}

func (s *InMemoryStore) Append(ctx context.Context, row Row) error {
	if err := ctx.Err(); err != nil {
		return storeErr("append row", err)
	}
	if row == nil {
		return storeErr("append row", fmt.Errorf("row is nil"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.table = append(s.table, copyRow(row))
	return nil
}

// Delete removes every row whose ID coerces to id. Spreadsheet users delete
// rows by hand; this mirrors that for tests of ID reuse.
func (s *InMemoryStore) Delete(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.table[:0]
	removed := 0
	for _, row := range s.table {
		if v, ok := row.Get(ColID).Int(); ok && v == id {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.table = kept
	return removed
}

func copyRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
