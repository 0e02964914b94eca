package sqlstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Zerofisher/marinedb/pkg/store"
)

// Table names.
const (
	TableOrganism        = "organism"
	TableObserver        = "observer"
	TableLocation        = "location"
	TableEvent           = "event"
	TableMedia           = "media"
	TableDatasetMetadata = "dataset_metadata"
	TableRecord          = "record"
	TableIngestRun       = "ingest_run"
)

// Tables lists the occurrence tables in dependency order.
var Tables = []string{
	TableOrganism, TableObserver, TableLocation, TableEvent,
	TableMedia, TableDatasetMetadata, TableRecord, TableIngestRun,
}

// ────────────────────────────────────────────────────────────────────────────────
// Schema Initialization
// ────────────────────────────────────────────────────────────────────────────────

func schemaStatements(d dialect) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
)`,

		// Entities. Natural keys carry PRIMARY KEY or UNIQUE; every column is
		// NOT NULL so key equality never meets NULL.
		`CREATE TABLE IF NOT EXISTS organism (
	organism_id      TEXT PRIMARY KEY,
	scientific_name  TEXT NOT NULL DEFAULT '',
	vernacular_name  TEXT NOT NULL DEFAULT '',
	taxon_rank       TEXT NOT NULL DEFAULT '',
	organism_name    TEXT NOT NULL DEFAULT '',
	sex              TEXT NOT NULL DEFAULT '',
	organism_remarks TEXT NOT NULL DEFAULT ''
)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS observer (
	observer_id      %s,
	recorded_by      TEXT NOT NULL UNIQUE,
	institution_code TEXT NOT NULL DEFAULT ''
)`, d.idColumn),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS location (
	location_id       %s,
	higher_geography  TEXT NOT NULL DEFAULT '',
	water_body        TEXT NOT NULL DEFAULT '',
	locality          TEXT NOT NULL DEFAULT '',
	verbatim_locality TEXT NOT NULL DEFAULT '',
	UNIQUE (higher_geography, water_body, locality, verbatim_locality)
)`, d.idColumn),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS event (
	event_id           TEXT PRIMARY KEY,
	basis_of_record    TEXT NOT NULL DEFAULT '',
	individual_count   %s NOT NULL DEFAULT 0,
	preparations       TEXT NOT NULL DEFAULT '',
	occurrence_remarks TEXT NOT NULL DEFAULT ''
)`, d.intType),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS media (
	media_id                %s,
	external_resource       TEXT NOT NULL DEFAULT '',
	external_resource_thumb TEXT NOT NULL DEFAULT '',
	license                 TEXT NOT NULL DEFAULT '',
	rights_holder           TEXT NOT NULL DEFAULT '',
	catalog_number          TEXT NOT NULL DEFAULT '',
	UNIQUE (external_resource, catalog_number)
)`, d.idColumn),

		// Append-only: no natural key.
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS dataset_metadata (
	dataset_metadata_id %s,
	oid                 TEXT NOT NULL DEFAULT '',
	type                TEXT NOT NULL DEFAULT '',
	modified            TEXT NOT NULL DEFAULT '',
	language            TEXT NOT NULL DEFAULT ''
)`, d.idColumn),

		// Fact table
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS record (
	occurrence_id        TEXT PRIMARY KEY,
	decimal_latitude     %[1]s NOT NULL DEFAULT 0,
	decimal_longitude    %[1]s NOT NULL DEFAULT 0,
	event_date           TEXT NOT NULL DEFAULT '',
	event_time           TEXT NOT NULL DEFAULT '',
	coordinate_precision %[1]s NOT NULL DEFAULT 0,
	geodetic_datum       TEXT NOT NULL DEFAULT '',
	event_id             TEXT REFERENCES event(event_id),
	organism_id          TEXT REFERENCES organism(organism_id),
	observer_id          %[2]s REFERENCES observer(observer_id),
	location_id          %[2]s REFERENCES location(location_id),
	media_id             %[2]s REFERENCES media(media_id),
	dataset_metadata_id  %[2]s REFERENCES dataset_metadata(dataset_metadata_id)
)`, d.floatType, d.refType),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS ingest_run (
	run_id       TEXT PRIMARY KEY,
	source       TEXT NOT NULL DEFAULT '',
	started_at   TEXT NOT NULL DEFAULT '',
	finished_at  TEXT NOT NULL DEFAULT '',
	rows_read    %[1]s NOT NULL DEFAULT 0,
	rows_written %[1]s NOT NULL DEFAULT 0,
	rows_skipped %[1]s NOT NULL DEFAULT 0
)`, d.intType),

		// Indexes for common queries
		`CREATE INDEX IF NOT EXISTS idx_record_event_date ON record(event_date)`,
		`CREATE INDEX IF NOT EXISTS idx_record_organism ON record(organism_id)`,
		`CREATE INDEX IF NOT EXISTS idx_record_observer ON record(observer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_record_location ON record(location_id)`,
		`CREATE INDEX IF NOT EXISTS idx_organism_scientific_name ON organism(scientific_name)`,
		`CREATE INDEX IF NOT EXISTS idx_location_locality ON location(locality)`,
	}
}

// Provision creates all tables and indexes if absent and records the schema
// version. It never alters or removes existing rows.
func (s *Store) Provision(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaStatements(s.d) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, s.d.rebind(`INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`),
		"schema_version", strconv.Itoa(store.SchemaVersion))
	if err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	s.logger.Debug("schema provisioned", "driver", s.d.name)
	return nil
}

// SchemaVersion returns the version recorded by Provision.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.d.rebind(`SELECT value FROM meta WHERE key = ?`), "schema_version").Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("query schema version: %w", err)
	}
	return strconv.Atoi(value)
}

// TableCounts returns the row count of every occurrence table.
func (s *Store) TableCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(Tables))
	for _, table := range Tables {
		var n int
		// Table names come from the fixed list above.
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
