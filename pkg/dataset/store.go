// Package dataset persists the venue dataset file, the single source of
// truth between runs and between the collection and enrichment engines.
// The file is a UTF-8 JSON array of venue records, rewritten wholesale and
// atomically; it is never appended to or streamed.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	errs "venuescraper/pkg/errors"
	"venuescraper/pkg/logger"
	"venuescraper/pkg/models"
)

// Store reads and rewrites the dataset file.
type Store struct {
	path   string
	logger logger.Logger
}

// NewStore creates a store for the dataset file at path.
func NewStore(path string) *Store {
	return &Store{
		path:   path,
		logger: logger.GetLogger(),
	}
}

// Load reads all venue records. A missing file yields an empty set; an
// unreadable or unparseable file is a corruption error and must be surfaced
// to the user rather than silently replaced with an empty dataset.
func (s *Store) Load() ([]models.Venue, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Corruption("dataset.Load", fmt.Errorf("failed to read %s: %w", s.path, err))
	}

	var venues []models.Venue
	if err := json.Unmarshal(data, &venues); err != nil {
		return nil, errs.Corruption("dataset.Load", fmt.Errorf("failed to parse %s: %w", s.path, err))
	}

	s.logger.InfoWithFields("dataset loaded", map[string]interface{}{
		"path":   s.path,
		"venues": len(venues),
	})

	return venues, nil
}

// Save rewrites the dataset file atomically via a temporary file and rename,
// mirroring the checkpoint discipline: a crash mid-write never leaves a
// half-written dataset on disk.
func (s *Store) Save(venues []models.Venue) error {
	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return errs.Fatal("dataset.Save", fmt.Errorf("failed to create temporary dataset file: %w", err))
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(venues); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.Fatal("dataset.Save", fmt.Errorf("failed to encode dataset: %w", err))
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.Fatal("dataset.Save", fmt.Errorf("failed to sync dataset file: %w", err))
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errs.Fatal("dataset.Save", fmt.Errorf("failed to close dataset file: %w", err))
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return errs.Fatal("dataset.Save", fmt.Errorf("failed to replace dataset file: %w", err))
	}

	s.logger.DebugWithFields("dataset saved", map[string]interface{}{
		"path":   s.path,
		"venues": len(venues),
	})

	return nil
}

// Exists checks if the dataset file exists.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the dataset file path.
func (s *Store) Path() string {
	return s.path
}
