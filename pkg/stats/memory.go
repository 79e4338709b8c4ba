package stats

import "sync"

// MemStore keeps records in memory. Useful for tests and for running the
// engine without persistence.
type MemStore struct {
	mu      sync.Mutex
	records [][2]string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Append records one outcome.
func (s *MemStore) Append(category, modelKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, [2]string{category, modelKey})
	return nil
}

// Summarize builds the histogram from recorded outcomes.
func (s *MemStore) Summarize() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := Summary{}
	for _, rec := range s.records {
		summary.Add(rec[0], rec[1], 1)
	}
	return summary, nil
}

// Len returns the number of records appended.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
