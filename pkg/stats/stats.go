package stats

// Summary maps task category -> model key -> win count, reconstructed from
// the full log. Advisory only: it biases routing prompts, never constrains
// them.
type Summary map[string]map[string]int

// Store is the append-only win log. Append is the only mutation; records are
// never updated or deleted.
type Store interface {
	// Append records one (task category, winning model key) outcome.
	Append(category, modelKey string) error

	// Summarize scans all persisted records into a histogram.
	Summarize() (Summary, error)
}

// Add increments one counter, allocating the inner map on first use.
func (s Summary) Add(category, modelKey string, n int) {
	if s[category] == nil {
		s[category] = make(map[string]int)
	}
	s[category][modelKey] += n
}

// Leader returns the model key with the most wins for a category.
func (s Summary) Leader(category string) (string, int) {
	best, bestCount := "", 0
	for key, count := range s[category] {
		if count > bestCount || (count == bestCount && key < best) {
			best, bestCount = key, count
		}
	}
	return best, bestCount
}
