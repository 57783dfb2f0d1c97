package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nvandessel/sense/internal/models"
	"github.com/nvandessel/sense/internal/pathutil"
)

// FileStore keeps each record as <dir>/<scenario_id>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory records are written to.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file a scenario's record lives in. Ids that would
// name a file outside the directory are rejected.
func (s *FileStore) Path(id models.ScenarioID) (string, error) {
	path, err := pathutil.JoinWithin(s.dir, id.String()+".json")
	if err != nil {
		return "", fmt.Errorf("invalid scenario id %q: %w", id, err)
	}
	return path, nil
}

// Get implements RecordStore.
func (s *FileStore) Get(_ context.Context, id models.ScenarioID) (*models.ScoreRecord, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}
	return readRecord(path)
}

// Put writes the record to a temporary file and renames it into place,
// so readers never see a partial record.
func (s *FileStore) Put(_ context.Context, rec *models.ScoreRecord) error {
	if rec.ScenarioID == "" {
		return fmt.Errorf("record has no scenario id")
	}
	path, err := s.Path(rec.ScenarioID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", rec.ScenarioID, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+rec.ScenarioID.String()+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write record %s: %w", rec.ScenarioID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store record %s: %w", rec.ScenarioID, err)
	}
	return nil
}

// Exists implements RecordStore.
func (s *FileStore) Exists(_ context.Context, id models.ScenarioID) (bool, error) {
	path, err := s.Path(id)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// List reads every *.json file in the directory.
func (s *FileStore) List(_ context.Context) ([]*models.ScoreRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var recs []*models.ScoreRecord
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		rec, err := readRecord(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	sortRecords(recs)
	return recs, nil
}

// Close implements RecordStore.
func (s *FileStore) Close() error { return nil }

func readRecord(path string) (*models.ScoreRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var rec models.ScoreRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if rec.ScenarioID == "" {
		rec.ScenarioID = models.ScenarioID(strings.TrimSuffix(filepath.Base(path), ".json"))
	}
	return &rec, nil
}

// sortRecords orders records by scenario id, numerically when both ids
// are numbers.
func sortRecords(recs []*models.ScoreRecord) {
	slices.SortFunc(recs, func(a, b *models.ScoreRecord) int {
		return models.CompareScenarioIDs(a.ScenarioID, b.ScenarioID)
	})
}
