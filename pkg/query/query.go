// Package query provides the read-only query interface over the occurrence store.
// Callers (CLI commands, reports) go through this package instead of the store.
package query

import (
	"context"

	"github.com/Zerofisher/marinedb/pkg/model"
)

// Engine provides the query interface.
type Engine interface {
	// Species lists distinct taxa with a non-empty scientific name, alphabetically.
	Species(ctx context.Context) ([]*model.Species, error)

	// Observation queries. Results are ordered by event date, newest first.
	BySpecies(ctx context.Context, scientificName string) ([]*model.Observation, error)
	ByLocation(ctx context.Context, locality string) ([]*model.Observation, error)
	ByDateRange(ctx context.Context, start, end string) ([]*model.Observation, error)
	Search(ctx context.Context, filter SearchFilter) ([]*model.Observation, error)

	// Get returns one observation or store.ErrNotFound.
	Get(ctx context.Context, occurrenceID string) (*model.Observation, error)

	// Statistics
	Statistics(ctx context.Context) (*model.Statistics, error)

	// IngestRuns lists committed ingest batches, newest first. limit <= 0 means all.
	IngestRuns(ctx context.Context, limit int) ([]*model.IngestRun, error)
}

// SearchFilter defines the filters for Search. Empty fields impose no
// constraint; set fields are combined with AND.
type SearchFilter struct {
	// Substring matches, case-insensitive for ASCII.
	Species  string // scientific name
	Location string // locality
	Observer string // recorded_by

	// Inclusive event-date bounds, compared as text (YYYY-MM-DD sorts correctly).
	StartDate string
	EndDate   string

	// Pagination (0 means no limit)
	Offset int
	Limit  int
}

// IsEmpty reports whether the filter constrains nothing.
func (f SearchFilter) IsEmpty() bool {
	return f.Species == "" && f.Location == "" && f.Observer == "" &&
		f.StartDate == "" && f.EndDate == ""
}
