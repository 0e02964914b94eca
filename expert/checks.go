package expert

import (
	"fmt"
	"strings"
	"time"

	"github.com/Zerofisher/marinedb/pkg/model"
)

var (
	dateLayouts = []string{"2006-01-02", "2006-01", "2006"}
	timeLayouts = []string{"15:04:05", "15:04", "15:04:05Z07:00", "15:04Z07:00", "15:04:05.999999999"}
)

func newInfo(t CheckType, o *model.Observation, details string) *ExpertInfo {
	return &ExpertInfo{
		OccurrenceID: o.OccurrenceID,
		Severity:     t.Severity(),
		Group:        t.Group(),
		Summary:      t.String(),
		Details:      details,
	}
}

// checkRecord runs the single-record checks.
func checkRecord(o *model.Observation, now time.Time) []*ExpertInfo {
	var results []*ExpertInfo
	add := func(t CheckType, format string, args ...any) {
		results = append(results, newInfo(t, o, fmt.Sprintf(format, args...)))
	}

	// Coordinates
	if o.DecimalLatitude < -90 || o.DecimalLatitude > 90 {
		add(LatitudeOutOfRange, "latitude %g outside [-90, 90]", o.DecimalLatitude)
	}
	if o.DecimalLongitude < -180 || o.DecimalLongitude > 180 {
		add(LongitudeOutOfRange, "longitude %g outside [-180, 180]", o.DecimalLongitude)
	}
	if o.DecimalLatitude == 0 && o.DecimalLongitude == 0 {
		add(NullIsland, "no position recorded")
	}
	if o.CoordinatePrecision < 0 {
		add(NegativePrecision, "precision %g", o.CoordinatePrecision)
	}

	// Date and time
	switch date, ok := parseEventDate(o.EventDate); {
	case o.EventDate == "":
		add(MissingDate, "no event date")
	case !ok:
		add(MalformedDate, "cannot parse %q", o.EventDate)
	case date.After(now):
		add(FutureDate, "%s is after %s", o.EventDate, now.Format("2006-01-02"))
	}
	if o.EventTime != "" && !validEventTime(o.EventTime) {
		add(MalformedTime, "cannot parse %q", o.EventTime)
	}

	// Names
	if o.ScientificName == "" {
		if o.VernacularName != "" {
			add(VernacularWithoutScientific, "only common name %q", o.VernacularName)
		} else {
			add(MissingScientificName, "no taxon")
		}
	}
	if o.RecordedBy == "" {
		add(MissingObserver, "no recorded_by")
	}

	return results
}

// parseEventDate accepts full or partial ISO dates. For intervals the start
// is used, and any time part is ignored.
func parseEventDate(s string) (time.Time, bool) {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func validEventTime(s string) bool {
	for _, layout := range timeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// DuplicateContext tracks sightings already seen so repeats can be flagged
type DuplicateContext struct {
	seen map[string]string // sighting key -> first occurrence id
}

// NewDuplicateContext creates a new duplicate tracker
func NewDuplicateContext() *DuplicateContext {
	return &DuplicateContext{seen: make(map[string]string)}
}

// Analyze flags o when the same species was already seen at the same place
// and time under another occurrence id
func (c *DuplicateContext) Analyze(o *model.Observation) []*ExpertInfo {
	if o.ScientificName == "" || o.EventDate == "" {
		return nil
	}
	if o.DecimalLatitude == 0 && o.DecimalLongitude == 0 {
		return nil
	}

	key := fmt.Sprintf("%s|%s|%s|%.5f|%.5f",
		strings.ToLower(o.ScientificName), o.EventDate, o.EventTime, o.DecimalLatitude, o.DecimalLongitude)

	first, ok := c.seen[key]
	if !ok {
		c.seen[key] = o.OccurrenceID
		return nil
	}

	info := newInfo(DuplicateSighting, o, "same species, place and time as "+first)
	info.Related = []string{first}
	return []*ExpertInfo{info}
}
