// Package memory is an in-process ResultsStore.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"regnskap/internal/core"
	"regnskap/internal/storage"
)

// Store keeps records JSON-encoded so callers never share state with it.
type Store struct {
	mu      sync.RWMutex
	records map[string][]byte
}

var _ storage.ResultsStore = (*Store)(nil)

func New() *Store {
	return &Store{records: make(map[string][]byte)}
}

// Load implements storage.ResultsStore.
func (s *Store) Load(_ context.Context, period string) (core.ResultsRecord, error) {
	if err := storage.ValidatePeriod(period); err != nil {
		return core.ResultsRecord{}, err
	}
	s.mu.RLock()
	raw, ok := s.records[period]
	s.mu.RUnlock()
	if !ok {
		return core.ResultsRecord{}, fmt.Errorf("%w: %s", storage.ErrNotFound, period)
	}

	var rec core.ResultsRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return core.ResultsRecord{}, fmt.Errorf("decode results %s: %w", period, err)
	}
	return rec, nil
}

// Save implements storage.ResultsStore.
func (s *Store) Save(_ context.Context, period string, rec core.ResultsRecord) error {
	if err := storage.ValidatePeriod(period); err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode results %s: %w", period, err)
	}
	s.mu.Lock()
	s.records[period] = raw
	s.mu.Unlock()
	return nil
}

// Periods implements storage.ResultsStore.
func (s *Store) Periods(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	periods := make([]string, 0, len(s.records))
	for p := range s.records {
		periods = append(periods, p)
	}
	sort.Strings(periods)
	return periods, nil
}

func (s *Store) Close() error { return nil }
