// Package mutate implements single-record changes: add, delete and in-place
// update of record scalars. Each operation runs in its own batch.
package mutate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Zerofisher/marinedb/pkg/ingest"
	"github.com/Zerofisher/marinedb/pkg/model"
	"github.com/Zerofisher/marinedb/pkg/store"
)

// Service applies mutations through a store.Writer.
type Service struct {
	w      store.Writer
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for generated occurrence ids.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New creates a mutation service.
func New(w store.Writer, opts ...Option) *Service {
	s := &Service{w: w, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateID returns an occurrence id of the form new_YYYYMMDD_HHMMSS.
func GenerateID(t time.Time) string {
	return "new_" + t.Format("20060102_150405")
}

// Add writes one record through the full normalization path and returns its
// occurrence id. A missing occurrence_id is generated from the clock and
// stored with the row. On failure nothing is written.
func (s *Service) Add(ctx context.Context, raw model.RawRow) (string, error) {
	row := make(model.RawRow, len(raw)+1)
	for k, v := range raw {
		row[k] = v
	}
	if row.Get(model.ColOccurrenceID) == "" {
		row[model.ColOccurrenceID] = GenerateID(s.now())
	}
	id := row[model.ColOccurrenceID]

	occ, err := ingest.Extract(row)
	if err != nil {
		return "", err
	}

	if err := s.w.BeginBatch(ctx); err != nil {
		return "", err
	}
	if _, err := ingest.NewNormalizer(s.w, s.logger).Normalize(ctx, occ); err != nil {
		s.rollback()
		s.logger.Error("add record failed", "occurrence_id", id, "error", err)
		return "", fmt.Errorf("add %q: %w", id, err)
	}
	if err := s.w.CommitBatch(); err != nil {
		return "", fmt.Errorf("add %q: %w", id, err)
	}

	s.logger.Info("record added", "occurrence_id", id)
	return id, nil
}

// Delete removes the record with the given id. It reports whether a record
// was removed; referenced entities are kept.
func (s *Service) Delete(ctx context.Context, occurrenceID string) (bool, error) {
	if err := s.w.BeginBatch(ctx); err != nil {
		return false, err
	}

	removed, err := s.w.DeleteRecord(ctx, occurrenceID)
	if err != nil {
		s.rollback()
		s.logger.Error("delete record failed", "occurrence_id", occurrenceID, "error", err)
		return false, err
	}
	if !removed {
		s.rollback()
		s.logger.Warn("record not found", "occurrence_id", occurrenceID)
		return false, nil
	}
	if err := s.w.CommitBatch(); err != nil {
		return false, err
	}

	s.logger.Info("record deleted", "occurrence_id", occurrenceID)
	return true, nil
}

// Update sets record scalars from patch. Keys outside
// model.UpdatableRecordFields are ignored; numeric fields are parsed. It
// reports false when no recognized field is given or the record is absent.
func (s *Service) Update(ctx context.Context, occurrenceID string, patch map[string]string) (bool, error) {
	set, err := Assignments(patch)
	if err != nil {
		return false, err
	}
	if len(set) == 0 {
		s.logger.Warn("no updatable fields", "occurrence_id", occurrenceID)
		return false, nil
	}

	if err := s.w.BeginBatch(ctx); err != nil {
		return false, err
	}

	updated, err := s.w.UpdateRecord(ctx, occurrenceID, set)
	if err != nil {
		s.rollback()
		s.logger.Error("update record failed", "occurrence_id", occurrenceID, "error", err)
		return false, err
	}
	if !updated {
		s.rollback()
		s.logger.Warn("record not found", "occurrence_id", occurrenceID)
		return false, nil
	}
	if err := s.w.CommitBatch(); err != nil {
		return false, err
	}

	s.logger.Info("record updated", "occurrence_id", occurrenceID, "fields", len(set))
	return true, nil
}

// Assignments converts a patch to typed column assignments in canonical
// column order, dropping keys that are not updatable.
func Assignments(patch map[string]string) ([]store.Assignment, error) {
	var set []store.Assignment
	for _, col := range model.UpdatableRecordFields {
		v, ok := patch[col]
		if !ok {
			continue
		}
		a := store.Assignment{Column: col, Value: v}
		if isNumeric(col) {
			f, err := ingest.ParseFloatField(col, v)
			if err != nil {
				return nil, err
			}
			a.Value = f
		}
		set = append(set, a)
	}
	return set, nil
}

func isNumeric(col string) bool {
	return slices.Contains([]string{
		model.ColDecimalLatitude, model.ColDecimalLongitude, model.ColCoordinatePrecision,
	}, col)
}

func (s *Service) rollback() {
	if err := s.w.RollbackBatch(); err != nil {
		s.logger.Warn("rollback failed", "error", err)
	}
}
