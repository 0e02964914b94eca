// Package fields provides observation field definitions and extraction
package fields

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Zerofisher/marinedb/pkg/model"
)

// FieldType represents the type of a field
type FieldType int

const (
	TypeString FieldType = iota
	TypeInt
	TypeFloat
)

// FieldDef defines an observation field
type FieldDef struct {
	Name        string                       // Field name (e.g., "location.locality")
	Description string                       // Human-readable description
	Type        FieldType                    // Value type
	Extractor   func(*model.Observation) any // Field value extractor; nil means absent
}

// Registry holds all registered fields
type Registry struct {
	fields map[string]*FieldDef
}

// NewRegistry creates a new field registry with standard fields
func NewRegistry() *Registry {
	r := &Registry{
		fields: make(map[string]*FieldDef),
	}
	r.registerStandardFields()
	return r
}

// Get returns a field definition by name
func (r *Registry) Get(name string) *FieldDef {
	return r.fields[name]
}

// List returns all registered field names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListByPrefix returns field names matching a prefix, sorted
func (r *Registry) ListByPrefix(prefix string) []string {
	var names []string
	for name := range r.fields {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Extract extracts a field value from an observation
func (r *Registry) Extract(name string, o *model.Observation) (any, bool) {
	field := r.fields[name]
	if field == nil {
		return nil, false
	}
	value := field.Extractor(o)
	return value, value != nil
}

// ExtractString extracts a field value as string
func (r *Registry) ExtractString(name string, o *model.Observation) string {
	value, ok := r.Extract(name, o)
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Register adds a new field to the registry
func (r *Registry) Register(field *FieldDef) {
	r.fields[field.Name] = field
}

func ref(v model.Ref) any {
	if !v.Valid {
		return nil
	}
	return v.ID
}

func str(get func(*model.Observation) string) func(*model.Observation) any {
	return func(o *model.Observation) any { return get(o) }
}

func num(get func(*model.Observation) float64) func(*model.Observation) any {
	return func(o *model.Observation) any { return get(o) }
}

func link(get func(*model.Observation) model.Ref) func(*model.Observation) any {
	return func(o *model.Observation) any { return ref(get(o)) }
}

// registerStandardFields registers the record columns and the joined entity
// attributes, grouped by entity prefix.
func (r *Registry) registerStandardFields() {
	for _, f := range []FieldDef{
		{"occurrence_id", "Occurrence identifier", TypeString, str(func(o *model.Observation) string { return o.OccurrenceID })},

		{"organism.id", "Organism identifier", TypeString, str(func(o *model.Observation) string { return o.OrganismID })},
		{"organism.scientific_name", "Scientific name", TypeString, str(func(o *model.Observation) string { return o.ScientificName })},
		{"organism.vernacular_name", "Common name", TypeString, str(func(o *model.Observation) string { return o.VernacularName })},

		{"observer.id", "Observer identifier", TypeInt, link(func(o *model.Observation) model.Ref { return o.ObserverID })},
		{"observer.recorded_by", "Person or team that recorded the occurrence", TypeString, str(func(o *model.Observation) string { return o.RecordedBy })},

		{"location.id", "Location identifier", TypeInt, link(func(o *model.Observation) model.Ref { return o.LocationID })},
		{"location.locality", "Locality", TypeString, str(func(o *model.Observation) string { return o.Locality })},
		{"location.water_body", "Water body", TypeString, str(func(o *model.Observation) string { return o.WaterBody })},
		{"location.higher_geography", "Higher geography", TypeString, str(func(o *model.Observation) string { return o.HigherGeography })},

		{"event.id", "Event identifier", TypeString, str(func(o *model.Observation) string { return o.EventID })},
		{"event.date", "Event date", TypeString, str(func(o *model.Observation) string { return o.EventDate })},
		{"event.time", "Event time", TypeString, str(func(o *model.Observation) string { return o.EventTime })},

		{"coord.lat", "Decimal latitude", TypeFloat, num(func(o *model.Observation) float64 { return o.DecimalLatitude })},
		{"coord.lon", "Decimal longitude", TypeFloat, num(func(o *model.Observation) float64 { return o.DecimalLongitude })},
		{"coord.precision", "Coordinate precision", TypeFloat, num(func(o *model.Observation) float64 { return o.CoordinatePrecision })},
		{"coord.datum", "Geodetic datum", TypeString, str(func(o *model.Observation) string { return o.GeodeticDatum })},

		// links without joined attributes
		{"media.id", "Media identifier", TypeInt, link(func(o *model.Observation) model.Ref { return o.MediaID })},
		{"dataset.id", "Dataset metadata identifier", TypeInt, link(func(o *model.Observation) model.Ref { return o.DatasetMetadataID })},
	} {
		r.Register(&f)
	}
}

// GetFieldInfo returns a formatted string describing a field
func (r *Registry) GetFieldInfo(name string) string {
	field := r.fields[name]
	if field == nil {
		return ""
	}
	return fmt.Sprintf("%s\t%s\t%s", field.Name, getTypeName(field.Type), field.Description)
}

func getTypeName(t FieldType) string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	default:
		return "unknown"
	}
}
