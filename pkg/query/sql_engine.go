package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zerofisher/marinedb/pkg/model"
	"github.com/Zerofisher/marinedb/pkg/store"
	"github.com/Zerofisher/marinedb/pkg/store/sqlstore"
)

var _ Engine = (*SQLEngine)(nil)

// SQLEngine implements Engine on a sqlstore.Store.
type SQLEngine struct {
	store *sqlstore.Store
}

// NewSQLEngine creates a new SQL-backed query engine.
func NewSQLEngine(st *sqlstore.Store) *SQLEngine {
	return &SQLEngine{store: st}
}

// Observation rows always come from the same join. Observer and location are
// left-joined so a record with an unresolved reference is still returned.
const observationSelect = `
	SELECT r.occurrence_id, r.decimal_latitude, r.decimal_longitude,
	       r.event_date, r.event_time, r.coordinate_precision, r.geodetic_datum,
	       r.event_id, r.organism_id, r.observer_id, r.location_id,
	       r.media_id, r.dataset_metadata_id,
	       o.scientific_name, o.vernacular_name,
	       obs.recorded_by,
	       l.locality, l.water_body, l.higher_geography
	FROM record r
	JOIN organism o ON r.organism_id = o.organism_id
	LEFT JOIN observer obs ON r.observer_id = obs.observer_id
	LEFT JOIN location l ON r.location_id = l.location_id
	WHERE 1=1`

const observationOrder = " ORDER BY r.event_date DESC, r.occurrence_id ASC"

// Species lists distinct taxa.
func (e *SQLEngine) Species(ctx context.Context) ([]*model.Species, error) {
	rows, err := e.store.DB().QueryContext(ctx, `
		SELECT DISTINCT scientific_name, vernacular_name, taxon_rank
		FROM organism
		WHERE scientific_name != ''
		ORDER BY scientific_name, vernacular_name, taxon_rank`)
	if err != nil {
		return nil, fmt.Errorf("query species: %w", err)
	}
	defer rows.Close()

	var species []*model.Species
	for rows.Next() {
		sp := &model.Species{}
		if err := rows.Scan(&sp.ScientificName, &sp.VernacularName, &sp.TaxonRank); err != nil {
			return nil, fmt.Errorf("scan species: %w", err)
		}
		species = append(species, sp)
	}
	return species, rows.Err()
}

// BySpecies returns observations of one scientific name, matched exactly.
func (e *SQLEngine) BySpecies(ctx context.Context, scientificName string) ([]*model.Observation, error) {
	return e.observations(ctx, " AND o.scientific_name = ?", "", scientificName)
}

// ByLocation returns observations whose locality contains locality.
func (e *SQLEngine) ByLocation(ctx context.Context, locality string) ([]*model.Observation, error) {
	return e.observations(ctx, " AND "+e.contains("l.locality"), "", likePattern(locality))
}

// ByDateRange returns observations with start <= event_date <= end.
func (e *SQLEngine) ByDateRange(ctx context.Context, start, end string) ([]*model.Observation, error) {
	return e.observations(ctx, " AND r.event_date BETWEEN ? AND ?", "", start, end)
}

// Search returns observations matching every set field of filter.
func (e *SQLEngine) Search(ctx context.Context, filter SearchFilter) ([]*model.Observation, error) {
	var where strings.Builder
	args := []interface{}{}

	if filter.Species != "" {
		where.WriteString(" AND " + e.contains("o.scientific_name"))
		args = append(args, likePattern(filter.Species))
	}
	if filter.Location != "" {
		where.WriteString(" AND " + e.contains("l.locality"))
		args = append(args, likePattern(filter.Location))
	}
	if filter.Observer != "" {
		where.WriteString(" AND " + e.contains("obs.recorded_by"))
		args = append(args, likePattern(filter.Observer))
	}
	if filter.StartDate != "" {
		where.WriteString(" AND r.event_date >= ?")
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		where.WriteString(" AND r.event_date <= ?")
		args = append(args, filter.EndDate)
	}

	return e.observations(ctx, where.String(), e.store.Paginate(filter.Limit, filter.Offset), args...)
}

// Get returns the observation with the given occurrence id.
func (e *SQLEngine) Get(ctx context.Context, occurrenceID string) (*model.Observation, error) {
	query := e.store.Rebind(observationSelect + " AND r.occurrence_id = ?")
	obs, err := scanObservation(e.store.DB().QueryRowContext(ctx, query, occurrenceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get observation %q: %w", occurrenceID, err)
	}
	return obs, nil
}

func (e *SQLEngine) observations(ctx context.Context, where, page string, args ...interface{}) ([]*model.Observation, error) {
	query := e.store.Rebind(observationSelect + where + observationOrder + page)

	rows, err := e.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var result []*model.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		result = append(result, obs)
	}
	return result, rows.Err()
}

// contains renders a case-insensitive substring test of column.
func (e *SQLEngine) contains(column string) string {
	return column + " " + e.store.LikeOperator() + ` ? ESCAPE '\'`
}

// likePattern wraps s in wildcards, escaping the wildcards it contains so
// they match literally.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// Statistics returns aggregate counts over the store.
func (e *SQLEngine) Statistics(ctx context.Context) (*model.Statistics, error) {
	db := e.store.DB()
	stats := &model.Statistics{}

	counts := []struct {
		dest  *int
		query string
	}{
		{&stats.TotalRecords, "SELECT COUNT(*) FROM record"},
		{&stats.UniqueSpecies, "SELECT COUNT(DISTINCT scientific_name) FROM organism WHERE scientific_name != ''"},
		{&stats.TotalObservers, "SELECT COUNT(*) FROM observer"},
		{&stats.TotalLocations, "SELECT COUNT(*) FROM location"},
	}
	for _, c := range counts {
		if err := db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("query statistics: %w", err)
		}
	}

	var start, end sql.NullString
	err := db.QueryRowContext(ctx,
		"SELECT MIN(event_date), MAX(event_date) FROM record WHERE event_date != ''").Scan(&start, &end)
	if err != nil {
		return nil, fmt.Errorf("query observation period: %w", err)
	}
	stats.ObservationPeriod = model.Period{Start: start.String, End: end.String}

	return stats, nil
}

// IngestRuns lists committed ingest batches, newest first.
func (e *SQLEngine) IngestRuns(ctx context.Context, limit int) ([]*model.IngestRun, error) {
	query := `SELECT run_id, source, started_at, finished_at, rows_read, rows_written, rows_skipped
		FROM ingest_run ORDER BY started_at DESC, run_id DESC` + e.store.Paginate(limit, 0)

	rows, err := e.store.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ingest runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.IngestRun
	for rows.Next() {
		run := &model.IngestRun{}
		var started, finished string
		if err := rows.Scan(&run.RunID, &run.Source, &started, &finished,
			&run.RowsRead, &run.RowsWritten, &run.RowsSkipped); err != nil {
			return nil, fmt.Errorf("scan ingest run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ────────────────────────────────────────────────────────────────────────────────
// Scan helpers
// ────────────────────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanObservation(row rowScanner) (*model.Observation, error) {
	o := &model.Observation{}
	var eventID, organismID sql.NullString
	var recordedBy, locality, waterBody, higherGeography sql.NullString

	err := row.Scan(
		&o.OccurrenceID, &o.DecimalLatitude, &o.DecimalLongitude,
		&o.EventDate, &o.EventTime, &o.CoordinatePrecision, &o.GeodeticDatum,
		&eventID, &organismID, &o.ObserverID, &o.LocationID,
		&o.MediaID, &o.DatasetMetadataID,
		&o.ScientificName, &o.VernacularName,
		&recordedBy,
		&locality, &waterBody, &higherGeography,
	)
	if err != nil {
		return nil, err
	}

	o.EventID = eventID.String
	o.OrganismID = organismID.String
	o.RecordedBy = recordedBy.String
	o.Locality = locality.String
	o.WaterBody = waterBody.String
	o.HigherGeography = higherGeography.String
	return o, nil
}
