package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Zerofisher/marinedb/pkg/model"
)

// FieldError reports a cell that is present but cannot be parsed.
type FieldError struct {
	Column string
	Value  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: invalid value %q: %v", e.Column, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Extract builds a fully populated occurrence from a raw row. Absent and empty
// cells become "" or 0. organism_id and event_id fall back to occurrence_id.
// A malformed numeric cell is an error; a malformed notes payload is not.
func Extract(row model.RawRow) (model.Occurrence, error) {
	var o model.Occurrence
	var err error

	o.OccurrenceID = row.Get(model.ColOccurrenceID)

	o.Organism = model.Organism{
		OrganismID:      orDefault(row.Get(model.ColOrganismID), o.OccurrenceID),
		ScientificName:  row.Get(model.ColScientificName),
		VernacularName:  row.Get(model.ColVernacularName),
		TaxonRank:       row.Get(model.ColTaxonRank),
		OrganismName:    row.Get(model.ColOrganismName),
		Sex:             row.Get(model.ColSex),
		OrganismRemarks: row.Get(model.ColOrganismRemarks),
	}

	o.Observer = model.Observer{
		RecordedBy:      row.Get(model.ColRecordedBy),
		InstitutionCode: row.Get(model.ColInstitutionCode),
	}

	o.Location = model.Location{
		HigherGeography:  row.Get(model.ColHigherGeography),
		WaterBody:        row.Get(model.ColWaterBody),
		Locality:         row.Get(model.ColLocality),
		VerbatimLocality: row.Get(model.ColVerbatimLocality),
	}

	o.Event = model.Event{
		EventID:           orDefault(row.Get(model.ColEventID), o.OccurrenceID),
		BasisOfRecord:     row.Get(model.ColBasisOfRecord),
		Preparations:      row.Get(model.ColPreparations),
		OccurrenceRemarks: row.Get(model.ColOccurrenceRemarks),
	}
	if o.Event.IndividualCount, err = parseCount(row, model.ColIndividualCount); err != nil {
		return model.Occurrence{}, err
	}

	o.Media = model.Media{
		ExternalResource:      row.Get(model.ColExternalResource),
		ExternalResourceThumb: row.Get(model.ColExternalResourceThumb),
		License:               row.Get(model.ColLicense),
		RightsHolder:          row.Get(model.ColRightsHolder),
		CatalogNumber:         row.Get(model.ColCatalogNumber),
	}

	o.DatasetMetadata = model.DatasetMetadata{
		OID:      row.Get(model.ColOID),
		Type:     row.Get(model.ColType),
		Modified: row.Get(model.ColModified),
		Language: row.Get(model.ColLanguage),
	}

	if o.DecimalLatitude, err = parseFloat(row, model.ColDecimalLatitude); err != nil {
		return model.Occurrence{}, err
	}
	if o.DecimalLongitude, err = parseFloat(row, model.ColDecimalLongitude); err != nil {
		return model.Occurrence{}, err
	}
	if o.CoordinatePrecision, err = parseFloat(row, model.ColCoordinatePrecision); err != nil {
		return model.Occurrence{}, err
	}
	o.EventDate = row.Get(model.ColEventDate)
	o.EventTime = row.Get(model.ColEventTime)
	o.GeodeticDatum = row.Get(model.ColGeodeticDatum)

	o.Notes = ParseNotes(row.Get(model.ColNotes))
	return o, nil
}

// ParseNotes decodes the optional JSON object carried in the notes column.
func ParseNotes(s string) model.Notes {
	if strings.TrimSpace(s) == "" {
		return model.Notes{}
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(s), &values); err != nil || values == nil {
		return model.Notes{}
	}
	return model.Notes{Values: values, Valid: true}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var errNotFinite = errors.New("not a finite number")

// ParseFloatField parses a numeric cell. Empty means 0.
func ParseFloatField(column, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &FieldError{Column: column, Value: s, Err: err}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &FieldError{Column: column, Value: s, Err: errNotFinite}
	}
	return f, nil
}

func parseFloat(row model.RawRow, column string) (float64, error) {
	return ParseFloatField(column, row.Get(column))
}

// parseCount accepts integers and whole-valued decimals such as "3.0".
func parseCount(row model.RawRow, column string) (int64, error) {
	s := strings.TrimSpace(row.Get(column))
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &FieldError{Column: column, Value: s, Err: err}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &FieldError{Column: column, Value: s, Err: errNotFinite}
	}
	if f != math.Trunc(f) {
		return 0, &FieldError{Column: column, Value: s, Err: fmt.Errorf("not a whole number")}
	}
	return int64(f), nil
}
