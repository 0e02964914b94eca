package expert

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Zerofisher/marinedb/pkg/model"
)

var fixedNow = time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC)

func goodObservation(id string) *model.Observation {
	return &model.Observation{
		Record: model.Record{
			OccurrenceID:     id,
			DecimalLatitude:  27.7,
			DecimalLongitude: -113.2,
			EventDate:        "2024-02-10",
			EventTime:        "06:45:00",
		},
		ScientificName: "Eschrichtius robustus",
		VernacularName: "Gray Whale",
		RecordedBy:     "Ana Lopez",
	}
}

func summaries(infos []*ExpertInfo) []string {
	var out []string
	for _, i := range infos {
		out = append(out, i.Summary)
	}
	return out
}

func TestCleanRecord(t *testing.T) {
	if got := checkRecord(goodObservation("A"), fixedNow); len(got) != 0 {
		t.Errorf("Expected no issues, got %v", summaries(got))
	}
}

func TestRecordChecks(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*model.Observation)
		want   CheckType
	}{
		{"latitude", func(o *model.Observation) { o.DecimalLatitude = 91 }, LatitudeOutOfRange},
		{"longitude", func(o *model.Observation) { o.DecimalLongitude = -180.5 }, LongitudeOutOfRange},
		{"null island", func(o *model.Observation) { o.DecimalLatitude, o.DecimalLongitude = 0, 0 }, NullIsland},
		{"precision", func(o *model.Observation) { o.CoordinatePrecision = -1 }, NegativePrecision},
		{"no date", func(o *model.Observation) { o.EventDate = "" }, MissingDate},
		{"bad date", func(o *model.Observation) { o.EventDate = "10/02/2024" }, MalformedDate},
		{"future", func(o *model.Observation) { o.EventDate = "2025-07-05" }, FutureDate},
		{"bad time", func(o *model.Observation) { o.EventTime = "dawn" }, MalformedTime},
		{"no taxon", func(o *model.Observation) { o.ScientificName, o.VernacularName = "", "" }, MissingScientificName},
		{"common only", func(o *model.Observation) { o.ScientificName = "" }, VernacularWithoutScientific},
		{"no observer", func(o *model.Observation) { o.RecordedBy = "" }, MissingObserver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := goodObservation("A")
			tt.modify(o)
			got := checkRecord(o, fixedNow)
			if len(got) != 1 {
				t.Fatalf("Expected 1 issue, got %v", summaries(got))
			}
			if got[0].Summary != tt.want.String() {
				t.Errorf("Expected %s, got %s", tt.want, got[0].Summary)
			}
			if got[0].Severity != tt.want.Severity() || got[0].Group != tt.want.Group() {
				t.Errorf("Unexpected classification %s/%s", got[0].Severity, got[0].Group)
			}
		})
	}
}

func TestPartialDates(t *testing.T) {
	for _, s := range []string{"2024", "2024-02", "2024-02-10T06:45:00Z", "2024-02-10/2024-02-12"} {
		if _, ok := parseEventDate(s); !ok {
			t.Errorf("parseEventDate(%q) should succeed", s)
		}
	}
	for _, s := range []string{"14:30", "14:30:00Z", "14:30:00+02:00"} {
		if !validEventTime(s) {
			t.Errorf("validEventTime(%q) should succeed", s)
		}
	}
}

func TestDuplicateSighting(t *testing.T) {
	ctx := NewDuplicateContext()

	if got := ctx.Analyze(goodObservation("A")); len(got) != 0 {
		t.Fatalf("Expected no issues for first sighting, got %d", len(got))
	}

	dup := goodObservation("B")
	dup.ScientificName = "ESCHRICHTIUS ROBUSTUS"
	got := ctx.Analyze(dup)
	if len(got) != 1 {
		t.Fatalf("Expected 1 duplicate, got %d", len(got))
	}
	if got[0].Summary != DuplicateSighting.String() || got[0].Related[0] != "A" {
		t.Errorf("Unexpected info %s", got[0])
	}

	other := goodObservation("C")
	other.EventTime = "07:00:00"
	if got := ctx.Analyze(other); len(got) != 0 {
		t.Errorf("Different time should not be a duplicate")
	}
}

func TestAnalyzer(t *testing.T) {
	a := NewAnalyzer()
	a.SetClock(func() time.Time { return fixedNow })

	bad := goodObservation("B")
	bad.DecimalLatitude = 95
	bad.RecordedBy = ""

	a.Analyze(goodObservation("A"))
	a.Analyze(bad)

	stats := a.GetStatistics()
	if stats.Records != 2 || stats.TotalCount != 2 {
		t.Fatalf("Unexpected statistics %+v", stats)
	}
	if stats.CountBySeverity[SeverityError] != 1 || stats.CountByGroup[GroupProvenance] != 1 {
		t.Errorf("Unexpected counts %+v", stats)
	}
	if !a.HasIssues() {
		t.Error("Expected issues")
	}
	if got := a.GetInfosBySeverity(SeverityWarning); len(got) != 1 {
		t.Errorf("Expected 1 entry at warning or above, got %d", len(got))
	}
	if got := a.ForRecord("B"); len(got) != 2 || !strings.HasPrefix(got[0], "[X]") {
		t.Errorf("Unexpected lines for B: %v", got)
	}

	var buf bytes.Buffer
	a.PrintSummary(&buf)
	a.PrintDetails(&buf, SeverityChat)
	if !strings.Contains(buf.String(), "Records checked: 2") || !strings.Contains(buf.String(), "Latitude Out Of Range") {
		t.Errorf("Unexpected report:\n%s", buf.String())
	}

	a.Reset()
	if a.HasIssues() || len(a.GetInfos()) != 0 {
		t.Error("Reset should clear everything")
	}
}

func TestParseSeverity(t *testing.T) {
	if s, err := ParseSeverity("warn"); err != nil || s != SeverityWarning {
		t.Errorf("ParseSeverity(warn) = %v, %v", s, err)
	}
	if _, err := ParseSeverity("loud"); err == nil {
		t.Error("Expected error for unknown severity")
	}
}
