package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/domain"
)

// ResultsStore persists the latest scan results document and serves it back
// to the API. Writes go through a temp file and a rename, so a reader never
// sees a partial document and a crash mid-write keeps the previous one.
type ResultsStore struct {
	log  zerolog.Logger
	path string
	mu   sync.Mutex
}

// NewResultsStore creates a results store writing to path.
func NewResultsStore(path string, log zerolog.Logger) *ResultsStore {
	return &ResultsStore{
		log:  log.With().Str("component", "results_store").Logger(),
		path: path,
	}
}

// Save replaces the results document.
func (s *ResultsStore) Save(result domain.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode scan results: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write scan results: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace scan results: %w", err)
	}

	s.log.Debug().
		Int("opportunities", len(result.NewOpportunities)).
		Int("alerts", len(result.SellAlerts)).
		Msg("Scan results written")

	return nil
}

// Latest returns the current results document. A missing file yields an
// empty result, not an error.
func (s *ResultsStore) Latest() (domain.ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ScanResult{}, nil
		}
		return domain.ScanResult{}, fmt.Errorf("failed to read scan results: %w", err)
	}

	var result domain.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.ScanResult{}, fmt.Errorf("failed to decode scan results: %w", err)
	}

	return result, nil
}

// Path returns where the document lives, for backup staging.
func (s *ResultsStore) Path() string {
	return s.path
}
