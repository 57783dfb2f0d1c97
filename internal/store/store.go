// Package store persists one ScoreRecord per scenario, keyed by scenario id.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nvandessel/sense/internal/models"
)

// ErrNotFound is returned when no record exists for a scenario id.
var ErrNotFound = errors.New("record not found")

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// RecordStore stores finished scenario records. Records are written once;
// implementations must be safe for concurrent use by batch workers.
type RecordStore interface {
	// Get returns the record of a scenario, or ErrNotFound.
	Get(ctx context.Context, id models.ScenarioID) (*models.ScoreRecord, error)

	// Put stores rec under rec.ScenarioID, replacing any previous record.
	Put(ctx context.Context, rec *models.ScoreRecord) error

	// Exists reports whether a record for id is stored.
	Exists(ctx context.Context, id models.ScenarioID) (bool, error)

	// List returns every stored record ordered by scenario id.
	List(ctx context.Context) ([]*models.ScoreRecord, error)

	Close() error
}

// Open returns the store for backend rooted at dir.
func Open(backend, dir string) (RecordStore, error) {
	switch strings.ToLower(backend) {
	case BackendFile, "":
		s, err := NewFileStore(dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := NewSQLiteStore(dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q (valid: file, sqlite)", backend)
	}
}
