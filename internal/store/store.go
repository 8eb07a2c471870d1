// Package store persists swing analysis records.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/swing-coach/internal/model"
)

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = eris.New("record not found")

// MaxListLimit bounds the page size of List.
const MaxListLimit = 100

// Store defines the persistence interface for analysis records.
type Store interface {
	// Create inserts a record, assigning its id and creation timestamp.
	// The insert is transactional; on failure nothing is written.
	Create(ctx context.Context, rec model.NewRecord) (*model.AnalysisRecord, error)

	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*model.AnalysisRecord, error)

	// List returns records ordered by creation time descending. The limit
	// is clamped to [1, MaxListLimit]; negative offsets are treated as 0.
	List(ctx context.Context, limit, offset int) ([]model.AnalysisRecord, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int, error)

	// Recent returns up to n most recent records for prompt context. It is
	// best-effort: storage errors degrade to an empty slice.
	Recent(ctx context.Context, n int) []model.AnalysisRecord

	// Delete removes a record permanently, reporting whether a row was
	// actually removed.
	Delete(ctx context.Context, id string) (bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func clampPage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
