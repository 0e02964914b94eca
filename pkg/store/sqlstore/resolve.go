package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Zerofisher/marinedb/pkg/model"
	"github.com/Zerofisher/marinedb/pkg/store"
)

// entitySpec describes one deduplicated entity table. Columns list the
// natural-key columns first; id is empty when the natural key is the id.
type entitySpec struct {
	table   string
	id      string
	keys    []string
	columns []string
}

var (
	organismSpec = entitySpec{
		table: TableOrganism,
		keys:  []string{"organism_id"},
		columns: []string{"organism_id", "scientific_name", "vernacular_name",
			"taxon_rank", "organism_name", "sex", "organism_remarks"},
	}
	observerSpec = entitySpec{
		table:   TableObserver,
		id:      "observer_id",
		keys:    []string{"recorded_by"},
		columns: []string{"recorded_by", "institution_code"},
	}
	locationSpec = entitySpec{
		table:   TableLocation,
		id:      "location_id",
		keys:    []string{"higher_geography", "water_body", "locality", "verbatim_locality"},
		columns: []string{"higher_geography", "water_body", "locality", "verbatim_locality"},
	}
	eventSpec = entitySpec{
		table: TableEvent,
		keys:  []string{"event_id"},
		columns: []string{"event_id", "basis_of_record", "individual_count",
			"preparations", "occurrence_remarks"},
	}
	mediaSpec = entitySpec{
		table: TableMedia,
		id:    "media_id",
		keys:  []string{"external_resource", "catalog_number"},
		columns: []string{"external_resource", "catalog_number", "external_resource_thumb",
			"license", "rights_holder"},
	}
)

// insertSQL inserts unless the natural key is already present.
func (e entitySpec) insertSQL() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		e.table, strings.Join(e.columns, ", "), placeholders(len(e.columns)))
}

// lookupSQL compares every key column with exact equality, empty strings included.
func (e entitySpec) lookupSQL() string {
	conds := make([]string, len(e.keys))
	for i, k := range e.keys {
		conds[i] = k + " = ?"
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s", e.id, e.table, strings.Join(conds, " AND "))
}

// ensure performs the conditional insert. Caller holds s.mu.
func (s *Store) ensure(ctx context.Context, e entitySpec, values []any) error {
	stmt, err := s.getStmt(ctx, e.table+".insert", e.insertSQL())
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, values...); err != nil {
		return fmt.Errorf("insert %s: %w", e.table, err)
	}
	return nil
}

// findOrCreate inserts the entity if its natural key is new, then returns the
// id bound to that key. An unmatched lookup yields an invalid Ref, not an error.
func (s *Store) findOrCreate(ctx context.Context, e entitySpec, values ...any) (model.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return model.Ref{}, store.ErrNoBatch
	}
	if err := s.ensure(ctx, e, values); err != nil {
		return model.Ref{}, err
	}

	stmt, err := s.getStmt(ctx, e.table+".lookup", e.lookupSQL())
	if err != nil {
		return model.Ref{}, err
	}
	var ref model.Ref
	err = stmt.QueryRowContext(ctx, values[:len(e.keys)]...).Scan(&ref)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ref{}, nil
	}
	if err != nil {
		return model.Ref{}, fmt.Errorf("lookup %s: %w", e.table, err)
	}
	return ref, nil
}

// findOrCreateKeyed is findOrCreate for tables whose natural key is the id.
func (s *Store) findOrCreateKeyed(ctx context.Context, e entitySpec, values ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return store.ErrNoBatch
	}
	return s.ensure(ctx, e, values)
}

// ResolveOrganism inserts the organism if new and returns its id.
func (s *Store) ResolveOrganism(ctx context.Context, o model.Organism) (string, error) {
	err := s.findOrCreateKeyed(ctx, organismSpec,
		o.OrganismID, o.ScientificName, o.VernacularName,
		o.TaxonRank, o.OrganismName, o.Sex, o.OrganismRemarks)
	if err != nil {
		return "", err
	}
	return o.OrganismID, nil
}

// ResolveObserver returns the id bound to o.RecordedBy.
func (s *Store) ResolveObserver(ctx context.Context, o model.Observer) (model.Ref, error) {
	return s.findOrCreate(ctx, observerSpec, o.RecordedBy, o.InstitutionCode)
}

// ResolveLocation returns the id bound to the four location fields.
func (s *Store) ResolveLocation(ctx context.Context, l model.Location) (model.Ref, error) {
	return s.findOrCreate(ctx, locationSpec,
		l.HigherGeography, l.WaterBody, l.Locality, l.VerbatimLocality)
}

// ResolveEvent inserts the event if new and returns its id.
func (s *Store) ResolveEvent(ctx context.Context, e model.Event) (string, error) {
	err := s.findOrCreateKeyed(ctx, eventSpec,
		e.EventID, e.BasisOfRecord, e.IndividualCount, e.Preparations, e.OccurrenceRemarks)
	if err != nil {
		return "", err
	}
	return e.EventID, nil
}

// ResolveMedia returns the id bound to (ExternalResource, CatalogNumber).
func (s *Store) ResolveMedia(ctx context.Context, m model.Media) (model.Ref, error) {
	return s.findOrCreate(ctx, mediaSpec,
		m.ExternalResource, m.CatalogNumber, m.ExternalResourceThumb, m.License, m.RightsHolder)
}

// InsertDatasetMetadata inserts a new metadata row and returns its id.
func (s *Store) InsertDatasetMetadata(ctx context.Context, d model.DatasetMetadata) (model.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return model.Ref{}, store.ErrNoBatch
	}

	const query = `INSERT INTO dataset_metadata (oid, type, modified, language)
		VALUES (?, ?, ?, ?) RETURNING dataset_metadata_id`

	stmt, err := s.getStmt(ctx, "dataset_metadata.insert", query)
	if err != nil {
		return model.Ref{}, err
	}
	var ref model.Ref
	if err := stmt.QueryRowContext(ctx, d.OID, d.Type, d.Modified, d.Language).Scan(&ref); err != nil {
		return model.Ref{}, fmt.Errorf("insert dataset_metadata: %w", err)
	}
	return ref, nil
}
