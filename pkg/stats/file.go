package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

var header = []string{"task_category", "winning_model"}

// FileStore persists records as CSV rows, one per append. The mutex is held
// only around the file write, never across the network calls that produced
// the record.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates the log file (with a header row) if it does not exist.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".fanroute", "stats.csv")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
		if err != nil && !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		if err == nil {
			w := csv.NewWriter(f)
			_ = w.Write(header)
			w.Flush()
			if cerr := f.Close(); cerr != nil {
				return nil, cerr
			}
		}
	}

	return &FileStore{path: path}, nil
}

// Path returns the log file location.
func (s *FileStore) Path() string {
	return s.path
}

// Append writes one record. A single O_APPEND write under the lock keeps
// concurrent records from interleaving.
func (s *FileStore) Append(category, modelKey string) error {
	if category == "" || modelKey == "" {
		return fmt.Errorf("stats record needs category and model key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open stats log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{category, modelKey}); err != nil {
		return fmt.Errorf("write stats record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush stats record: %w", err)
	}
	return nil
}

// Summarize scans every record into a histogram. A missing file reads as an
// empty summary; malformed rows are skipped rather than failing the scan.
func (s *FileStore) Summarize() (Summary, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Summary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open stats log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	summary := Summary{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		if len(record) < 2 || record[0] == header[0] {
			continue
		}
		summary.Add(record[0], record[1], 1)
	}
	return summary, nil
}
