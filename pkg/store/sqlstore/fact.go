package sqlstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Zerofisher/marinedb/pkg/model"
	"github.com/Zerofisher/marinedb/pkg/store"
)

var recordColumns = []string{
	"occurrence_id", "decimal_latitude", "decimal_longitude", "event_date",
	"event_time", "coordinate_precision", "geodetic_datum", "event_id",
	"organism_id", "observer_id", "location_id", "media_id", "dataset_metadata_id",
}

// upsertRecordSQL replaces every column of an existing record.
func upsertRecordSQL() string {
	sets := make([]string, 0, len(recordColumns)-1)
	for _, c := range recordColumns[1:] {
		sets = append(sets, c+" = excluded."+c)
	}
	return fmt.Sprintf("INSERT INTO record (%s) VALUES (%s) ON CONFLICT(occurrence_id) DO UPDATE SET %s",
		strings.Join(recordColumns, ", "), placeholders(len(recordColumns)), strings.Join(sets, ", "))
}

// UpsertRecord inserts r or fully replaces the record with the same occurrence id.
func (s *Store) UpsertRecord(ctx context.Context, r model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return store.ErrNoBatch
	}

	stmt, err := s.getStmt(ctx, "record.upsert", upsertRecordSQL())
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		r.OccurrenceID,
		r.DecimalLatitude,
		r.DecimalLongitude,
		r.EventDate,
		r.EventTime,
		r.CoordinatePrecision,
		r.GeodeticDatum,
		r.EventID,
		r.OrganismID,
		r.ObserverID,
		r.LocationID,
		r.MediaID,
		r.DatasetMetadataID,
	)
	if err != nil {
		return fmt.Errorf("upsert record %q: %w", r.OccurrenceID, err)
	}
	return nil
}

// DeleteRecord removes the record only; the entities it referenced stay.
func (s *Store) DeleteRecord(ctx context.Context, occurrenceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return false, store.ErrNoBatch
	}

	res, err := s.tx.ExecContext(ctx, s.d.rebind(`DELETE FROM record WHERE occurrence_id = ?`), occurrenceID)
	if err != nil {
		return false, fmt.Errorf("delete record %q: %w", occurrenceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete record %q: %w", occurrenceID, err)
	}
	return n > 0, nil
}

// UpdateRecord sets record scalars in place. Links cannot be changed here.
func (s *Store) UpdateRecord(ctx context.Context, occurrenceID string, set []store.Assignment) (bool, error) {
	if len(set) == 0 {
		return false, nil
	}

	sets := make([]string, 0, len(set))
	args := make([]any, 0, len(set)+1)
	for _, a := range set {
		if !slices.Contains(model.UpdatableRecordFields, a.Column) {
			return false, fmt.Errorf("column %q is not updatable", a.Column)
		}
		sets = append(sets, a.Column+" = ?")
		args = append(args, a.Value)
	}
	args = append(args, occurrenceID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return false, store.ErrNoBatch
	}

	query := fmt.Sprintf("UPDATE record SET %s WHERE occurrence_id = ?", strings.Join(sets, ", "))
	res, err := s.tx.ExecContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("update record %q: %w", occurrenceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update record %q: %w", occurrenceID, err)
	}
	return n > 0, nil
}

// InsertIngestRun records a completed ingest batch.
func (s *Store) InsertIngestRun(ctx context.Context, run model.IngestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return store.ErrNoBatch
	}

	const query = `INSERT INTO ingest_run
		(run_id, source, started_at, finished_at, rows_read, rows_written, rows_skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.tx.ExecContext(ctx, s.d.rebind(query),
		run.RunID,
		run.Source,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.RowsRead,
		run.RowsWritten,
		run.RowsSkipped,
	)
	if err != nil {
		return fmt.Errorf("insert ingest run: %w", err)
	}
	return nil
}
