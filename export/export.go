// Package export provides observation export functionality in various formats
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Zerofisher/marinedb/fields"
	"github.com/Zerofisher/marinedb/pkg/model"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatText   OutputFormat = "text"
	FormatJSON   OutputFormat = "json"
	FormatFields OutputFormat = "fields"
)

// ParseFormat validates a format name. Empty means text.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatFields:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q (use text, json or fields)", s)
}

// Exporter handles observation export
type Exporter struct {
	format     OutputFormat
	writer     io.Writer
	registry   *fields.Registry
	fields     []string // for -e field extraction
	showDetail bool     // -V verbose
	showHeader bool     // column names before fields output
	count      int      // observations exported
	maxCount   int      // -c limit (0 = unlimited)
	first      bool     // track first element for JSON array
}

// NewExporter creates a new exporter
func NewExporter(w io.Writer, format OutputFormat) *Exporter {
	return &Exporter{
		format:   format,
		writer:   w,
		registry: fields.NewRegistry(),
		first:    true,
	}
}

// SetFields sets the fields to extract (for -T fields -e)
func (e *Exporter) SetFields(fieldNames []string) {
	e.fields = fieldNames
}

// SetMaxCount sets the maximum observation count
func (e *Exporter) SetMaxCount(n int) {
	e.maxCount = n
}

// SetShowDetail enables verbose output
func (e *Exporter) SetShowDetail(v bool) {
	e.showDetail = v
}

// SetShowHeader prints field names before fields output
func (e *Exporter) SetShowHeader(v bool) {
	e.showHeader = v
}

// Count returns the number of exported observations
func (e *Exporter) Count() int {
	return e.count
}

// ShouldStop returns true if we've reached the limit
func (e *Exporter) ShouldStop() bool {
	return e.maxCount > 0 && e.count >= e.maxCount
}

// Validate checks that every requested field exists.
func (e *Exporter) Validate() error {
	if e.format == FormatFields && len(e.fields) == 0 {
		return fmt.Errorf("fields output needs at least one -e field")
	}
	for _, name := range e.fields {
		if e.registry.Get(name) == nil {
			return fmt.Errorf("unknown field %q (see 'marinedb list fields')", name)
		}
	}
	return nil
}

// ExportObservation exports a single observation
func (e *Exporter) ExportObservation(o *model.Observation) error {
	if e.ShouldStop() {
		return nil
	}

	var err error
	switch e.format {
	case FormatJSON:
		err = e.exportJSON(o)
	case FormatFields:
		err = e.exportFields(o)
	default:
		err = e.exportText(o)
	}

	if err == nil {
		e.count++
	}
	return err
}

// ExportAll exports observations in order, stopping at the limit.
func (e *Exporter) ExportAll(obs []*model.Observation) error {
	if err := e.Start(); err != nil {
		return err
	}
	for _, o := range obs {
		if e.ShouldStop() {
			break
		}
		if err := e.ExportObservation(o); err != nil {
			return err
		}
	}
	return e.Finish()
}

// Start writes any header needed for the format
func (e *Exporter) Start() error {
	switch e.format {
	case FormatJSON:
		_, err := fmt.Fprint(e.writer, "[")
		return err
	case FormatFields:
		if e.showHeader {
			_, err := fmt.Fprintln(e.writer, strings.Join(e.fields, "\t"))
			return err
		}
	}
	return nil
}

// Finish writes any footer needed for the format
func (e *Exporter) Finish() error {
	if e.format == FormatJSON {
		if e.first {
			_, err := fmt.Fprintln(e.writer, "]")
			return err
		}
		_, err := fmt.Fprintln(e.writer, "\n]")
		return err
	}
	return nil
}

// exportText exports an observation in text format (one line summary)
func (e *Exporter) exportText(o *model.Observation) error {
	// Format: ID Date Species Observer Locality Coordinates
	date := o.EventDate
	if date == "" {
		date = "-"
	}
	species := o.ScientificName
	if o.VernacularName != "" {
		species = fmt.Sprintf("%s (%s)", o.ScientificName, o.VernacularName)
	}

	line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%.4f,%.4f",
		o.OccurrenceID,
		date,
		species,
		o.RecordedBy,
		o.Locality,
		o.DecimalLatitude,
		o.DecimalLongitude,
	)

	if _, err := fmt.Fprintln(e.writer, line); err != nil {
		return err
	}

	if e.showDetail {
		return e.exportDetail(o)
	}
	return nil
}

// exportJSON exports an observation as one element of a JSON array
func (e *Exporter) exportJSON(o *model.Observation) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}

	if e.first {
		e.first = false
		_, err = fmt.Fprintf(e.writer, "\n  %s", data)
	} else {
		_, err = fmt.Fprintf(e.writer, ",\n  %s", data)
	}
	return err
}

// exportFields exports specific fields (for -T fields -e)
func (e *Exporter) exportFields(o *model.Observation) error {
	values := make([]string, len(e.fields))
	for i, fieldName := range e.fields {
		values[i] = e.registry.ExtractString(fieldName, o)
	}

	_, err := fmt.Fprintln(e.writer, strings.Join(values, "\t"))
	return err
}

// exportDetail exports every field of the observation (for -V)
func (e *Exporter) exportDetail(o *model.Observation) error {
	values := o.Fields()
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := values[name]
		if v == nil {
			v = "-"
		}
		if _, err := fmt.Fprintf(e.writer, "    %-22s %v\n", name+":", v); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(e.writer)
	return err
}
