// Package model defines the occurrence data model shared by ingest, store and query.
// A source row is decomposed into six entities plus the record (fact) that links them.
package model

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"
)

// ────────────────────────────────────────────────────────────────────────────────
// Source columns
// ────────────────────────────────────────────────────────────────────────────────

// Recognized source column names.
const (
	ColOccurrenceID          = "occurrence_id"
	ColOrganismID            = "organism_id"
	ColScientificName        = "scientific_name"
	ColVernacularName        = "vernacular_name"
	ColTaxonRank             = "taxon_rank"
	ColOrganismName          = "organism_name"
	ColSex                   = "sex"
	ColOrganismRemarks       = "organism_remarks"
	ColRecordedBy            = "recorded_by"
	ColInstitutionCode       = "institution_code"
	ColHigherGeography       = "higher_geography"
	ColWaterBody             = "water_body"
	ColLocality              = "locality"
	ColVerbatimLocality      = "verbatim_locality"
	ColEventID               = "event_id"
	ColBasisOfRecord         = "basis_of_record"
	ColIndividualCount       = "individual_count"
	ColPreparations          = "preparations"
	ColOccurrenceRemarks     = "occurrence_remarks"
	ColExternalResource      = "external_resource"
	ColExternalResourceThumb = "external_resource_thumb"
	ColLicense               = "license"
	ColRightsHolder          = "rights_holder"
	ColCatalogNumber         = "catalog_number"
	ColOID                   = "oid"
	ColType                  = "type"
	ColModified              = "modified"
	ColLanguage              = "language"
	ColDecimalLatitude       = "decimal_latitude"
	ColDecimalLongitude      = "decimal_longitude"
	ColEventDate             = "event_date"
	ColEventTime             = "event_time"
	ColCoordinatePrecision   = "coordinate_precision"
	ColGeodeticDatum         = "geodetic_datum"
	ColNotes                 = "notes"
)

// Columns lists every recognized source column in canonical order.
var Columns = []string{
	ColOccurrenceID, ColOrganismID, ColScientificName, ColVernacularName, ColTaxonRank,
	ColOrganismName, ColSex, ColOrganismRemarks, ColRecordedBy, ColInstitutionCode,
	ColHigherGeography, ColWaterBody, ColLocality, ColVerbatimLocality, ColEventID,
	ColBasisOfRecord, ColIndividualCount, ColPreparations, ColOccurrenceRemarks,
	ColExternalResource, ColExternalResourceThumb, ColLicense, ColRightsHolder,
	ColCatalogNumber, ColOID, ColType, ColModified, ColLanguage, ColDecimalLatitude,
	ColDecimalLongitude, ColEventDate, ColEventTime, ColCoordinatePrecision,
	ColGeodeticDatum, ColNotes,
}

// UpdatableRecordFields are the record scalars that may be changed in place.
// Entity links are deliberately absent.
var UpdatableRecordFields = []string{
	ColDecimalLatitude, ColDecimalLongitude, ColEventDate,
	ColEventTime, ColCoordinatePrecision, ColGeodeticDatum,
}

// IsRecognizedColumn reports whether name is a known source column.
func IsRecognizedColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}

// RawRow is one source row: column name -> raw cell text.
// Absent columns and empty cells are equivalent.
type RawRow map[string]string

// Get returns the cell for column, or "" if absent.
func (r RawRow) Get(column string) string {
	if r == nil {
		return ""
	}
	return r[column]
}

// ────────────────────────────────────────────────────────────────────────────────
// Entities
// ────────────────────────────────────────────────────────────────────────────────

// Organism is keyed by OrganismID.
type Organism struct {
	OrganismID      string `json:"organism_id"`
	ScientificName  string `json:"scientific_name"`
	VernacularName  string `json:"vernacular_name"`
	TaxonRank       string `json:"taxon_rank"`
	OrganismName    string `json:"organism_name"`
	Sex             string `json:"sex"`
	OrganismRemarks string `json:"organism_remarks"`
}

// Observer is keyed by RecordedBy. InstitutionCode is not part of the key.
type Observer struct {
	RecordedBy      string `json:"recorded_by"`
	InstitutionCode string `json:"institution_code"`
}

// Location is keyed by all four fields, compared exactly.
type Location struct {
	HigherGeography  string `json:"higher_geography"`
	WaterBody        string `json:"water_body"`
	Locality         string `json:"locality"`
	VerbatimLocality string `json:"verbatim_locality"`
}

// Event is keyed by EventID.
type Event struct {
	EventID           string `json:"event_id"`
	BasisOfRecord     string `json:"basis_of_record"`
	IndividualCount   int64  `json:"individual_count"`
	Preparations      string `json:"preparations"`
	OccurrenceRemarks string `json:"occurrence_remarks"`
}

// Media is keyed by (ExternalResource, CatalogNumber).
type Media struct {
	ExternalResource      string `json:"external_resource"`
	ExternalResourceThumb string `json:"external_resource_thumb"`
	License               string `json:"license"`
	RightsHolder          string `json:"rights_holder"`
	CatalogNumber         string `json:"catalog_number"`
}

// DatasetMetadata has no natural key; every row inserts a new one.
type DatasetMetadata struct {
	OID      string `json:"oid"`
	Type     string `json:"type"`
	Modified string `json:"modified"`
	Language string `json:"language"`
}

// Notes holds the optional JSON side payload of a row.
// Valid is false when the payload was absent or malformed; the content is
// never persisted.
type Notes struct {
	Values map[string]any
	Valid  bool
}

// Occurrence is a source row after field extraction: every field populated,
// missing values already replaced by "" or 0.
type Occurrence struct {
	OccurrenceID string

	Organism        Organism
	Observer        Observer
	Location        Location
	Event           Event
	Media           Media
	DatasetMetadata DatasetMetadata

	DecimalLatitude     float64
	DecimalLongitude    float64
	EventDate           string
	EventTime           string
	CoordinatePrecision float64
	GeodeticDatum       string

	Notes Notes
}

// ────────────────────────────────────────────────────────────────────────────────
// Record (fact) and links
// ────────────────────────────────────────────────────────────────────────────────

// Ref is a nullable reference to a system-assigned entity id.
type Ref struct {
	ID    int64
	Valid bool
}

// NewRef returns a valid reference to id.
func NewRef(id int64) Ref {
	return Ref{ID: id, Valid: true}
}

// Value implements driver.Valuer so an unresolved reference is written as NULL.
func (r Ref) Value() (driver.Value, error) {
	if !r.Valid {
		return nil, nil
	}
	return r.ID, nil
}

// Scan implements sql.Scanner.
func (r *Ref) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = Ref{}
	case int64:
		*r = NewRef(v)
	case int32:
		*r = NewRef(int64(v))
	case float64:
		*r = NewRef(int64(v))
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return err
		}
		*r = NewRef(n)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*r = NewRef(n)
	default:
		return fmt.Errorf("unsupported ref type %T", src)
	}
	return nil
}

// MarshalJSON renders an unresolved reference as null.
func (r Ref) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(r.ID, 10)), nil
}

// String returns the id, or "" when unresolved.
func (r Ref) String() string {
	if !r.Valid {
		return ""
	}
	return strconv.FormatInt(r.ID, 10)
}

// Links are the identifiers a record points at.
type Links struct {
	OrganismID        string `json:"organism_id"`
	EventID           string `json:"event_id"`
	ObserverID        Ref    `json:"observer_id"`
	LocationID        Ref    `json:"location_id"`
	MediaID           Ref    `json:"media_id"`
	DatasetMetadataID Ref    `json:"dataset_metadata_id"`
}

// Record is the central fact row, keyed by OccurrenceID.
type Record struct {
	OccurrenceID        string  `json:"occurrence_id"`
	DecimalLatitude     float64 `json:"decimal_latitude"`
	DecimalLongitude    float64 `json:"decimal_longitude"`
	EventDate           string  `json:"event_date"`
	EventTime           string  `json:"event_time"`
	CoordinatePrecision float64 `json:"coordinate_precision"`
	GeodeticDatum       string  `json:"geodetic_datum"`
	Links
}

// NewRecord builds the fact row for an occurrence and its resolved links.
func NewRecord(o Occurrence, links Links) Record {
	return Record{
		OccurrenceID:        o.OccurrenceID,
		DecimalLatitude:     o.DecimalLatitude,
		DecimalLongitude:    o.DecimalLongitude,
		EventDate:           o.EventDate,
		EventTime:           o.EventTime,
		CoordinatePrecision: o.CoordinatePrecision,
		GeodeticDatum:       o.GeodeticDatum,
		Links:               links,
	}
}

// ────────────────────────────────────────────────────────────────────────────────
// Query results
// ────────────────────────────────────────────────────────────────────────────────

// Observation is a record joined with its organism, observer and location.
type Observation struct {
	Record
	ScientificName  string `json:"scientific_name"`
	VernacularName  string `json:"vernacular_name"`
	RecordedBy      string `json:"recorded_by"`
	Locality        string `json:"locality"`
	WaterBody       string `json:"water_body"`
	HigherGeography string `json:"higher_geography"`
}

// Fields returns the observation as a field-name -> value mapping.
// Unresolved references map to nil.
func (o *Observation) Fields() map[string]any {
	ref := func(r Ref) any {
		if !r.Valid {
			return nil
		}
		return r.ID
	}
	return map[string]any{
		ColOccurrenceID:        o.OccurrenceID,
		ColDecimalLatitude:     o.DecimalLatitude,
		ColDecimalLongitude:    o.DecimalLongitude,
		ColEventDate:           o.EventDate,
		ColEventTime:           o.EventTime,
		ColCoordinatePrecision: o.CoordinatePrecision,
		ColGeodeticDatum:       o.GeodeticDatum,
		ColEventID:             o.EventID,
		ColOrganismID:          o.OrganismID,
		"observer_id":          ref(o.ObserverID),
		"location_id":          ref(o.LocationID),
		"media_id":             ref(o.MediaID),
		"dataset_metadata_id":  ref(o.DatasetMetadataID),
		ColScientificName:      o.ScientificName,
		ColVernacularName:      o.VernacularName,
		ColRecordedBy:          o.RecordedBy,
		ColLocality:            o.Locality,
		ColWaterBody:           o.WaterBody,
		ColHigherGeography:     o.HigherGeography,
	}
}

// Species is one distinct taxon present in the store.
type Species struct {
	ScientificName string `json:"scientific_name"`
	VernacularName string `json:"vernacular_name"`
	TaxonRank      string `json:"taxon_rank"`
}

// Period is an inclusive event-date range. Both ends are empty when no
// record carries a date.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Statistics are aggregate counts over the store.
type Statistics struct {
	TotalRecords      int    `json:"total_records"`
	UniqueSpecies     int    `json:"unique_species"`
	TotalObservers    int    `json:"total_observers"`
	TotalLocations    int    `json:"total_locations"`
	ObservationPeriod Period `json:"observation_period"`
}

// IngestRun is the bookkeeping row written with each committed batch.
type IngestRun struct {
	RunID       string    `json:"run_id"`
	Source      string    `json:"source"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	RowsRead    int       `json:"rows_read"`
	RowsWritten int       `json:"rows_written"`
	RowsSkipped int       `json:"rows_skipped"`
}
