package memory

import (
	"context"
	"fmt"
	"sync"

	"regnskap/internal/sheets"
)

// Store keeps exported rows in memory, one per period.
type Store struct {
	mu   sync.Mutex
	rows [][]string
}

var (
	_ sheets.RowWriter    = (*Store)(nil)
	_ sheets.PeriodLister = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// WriteRow stores a copy of row and returns a synthetic row reference.
func (s *Store) WriteRow(_ context.Context, row []string) (string, error) {
	period, err := sheets.RowPeriod(row)
	if err != nil {
		return "", err
	}
	cp := append([]string(nil), row...)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rows {
		if r[0] == period {
			s.rows[i] = cp
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	s.rows = append(s.rows, cp)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Periods returns the stored periods in write order.
func (s *Store) Periods(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r[0])
	}
	return out, nil
}

// Rows returns copies of the stored rows.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
