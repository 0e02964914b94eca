package filter

import (
	"testing"

	"github.com/Zerofisher/marinedb/pkg/model"
)

func testObservations() []*model.Observation {
	gray := &model.Observation{
		Record: model.Record{
			OccurrenceID:     "A",
			DecimalLatitude:  27.7,
			DecimalLongitude: -113.2,
			EventDate:        "2024-02-10",
		},
		ScientificName: "Eschrichtius robustus",
		VernacularName: "Gray Whale",
		RecordedBy:     "Ana Lopez",
		Locality:       "Laguna San Ignacio",
		WaterBody:      "Pacific Ocean",
	}
	humpback := &model.Observation{
		Record:         model.Record{OccurrenceID: "B", EventDate: "2023-08-01"},
		ScientificName: "Megaptera novaeangliae",
		VernacularName: "Humpback Whale",
		Locality:       "Monterey Bay",
	}
	undated := &model.Observation{
		Record:         model.Record{OccurrenceID: "C"},
		ScientificName: "Orcinus orca",
	}
	return []*model.Observation{gray, humpback, undated}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{`organism.vernacular_name contains "Whale"`, []string{"A", "B"}},
		{`event.year >= 2024`, []string{"A"}},
		{`dated`, []string{"A", "B"}},
		{`!located`, []string{"B", "C"}},
		{`coord.lat > 20 && coord.lon < -100`, []string{"A"}},
		{`occurrence_id in {"A", "C"}`, []string{"A", "C"}},
		{`location.locality startsWith "Monterey"`, []string{"B"}},
		{`organism.scientific_name == "dated"`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			keep, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("Compile(%q): %v", tt.expr, err)
			}
			var got []string
			for _, o := range Apply(testObservations(), keep) {
				got = append(got, o.OccurrenceID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Compile(%q) matched %v, want %v", tt.expr, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Compile(%q) matched %v, want %v", tt.expr, got, tt.want)
					break
				}
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	for _, s := range []string{`organism.unknown == 1`, `coord.lat +`, `event.date`} {
		if _, err := Compile(s); err == nil {
			t.Errorf("Compile(%q) should fail", s)
		}
	}
}

func TestApplyNil(t *testing.T) {
	obs := testObservations()
	if got := Apply(obs, nil); len(got) != len(obs) {
		t.Errorf("Apply with nil predicate returned %d, want %d", len(got), len(obs))
	}
}
