// Package report provides report generation for the occurrence store.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/Zerofisher/marinedb/pkg/model"
	"github.com/Zerofisher/marinedb/pkg/query"
	"github.com/Zerofisher/marinedb/stats"
)

const (
	topObservers = 10
	recentCount  = 10
	runCount     = 5
)

// Data holds all data for report generation.
type Data struct {
	// Meta
	GeneratedAt time.Time `json:"generated_at"`

	// Overview
	Statistics *model.Statistics `json:"statistics"`

	// Taxa
	Species []*SpeciesSummary `json:"species"`

	// Distribution
	Years        []*stats.Tally `json:"years"`
	TopObservers []*stats.Tally `json:"top_observers"`

	// Latest records and ingest history
	Recent []*model.Observation `json:"recent"`
	Runs   []*model.IngestRun   `json:"runs"`
}

// SpeciesSummary is a species with its record count for display.
type SpeciesSummary struct {
	ScientificName string `json:"scientific_name"`
	VernacularName string `json:"vernacular_name"`
	Records        int    `json:"records"`
	First          string `json:"first"`
	Last           string `json:"last"`
}

// Generate creates a report from the query engine.
func Generate(ctx context.Context, engine query.Engine) (*Data, error) {
	report := &Data{
		GeneratedAt: time.Now().UTC(),
	}

	var err error
	report.Statistics, err = engine.Statistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("get statistics: %w", err)
	}

	all, err := engine.Search(ctx, query.SearchFilter{})
	if err != nil {
		return nil, fmt.Errorf("get observations: %w", err)
	}
	mgr := stats.NewManager()
	for _, o := range all {
		mgr.ProcessObservation(o)
	}

	tallies := make(map[string]*stats.Tally)
	for _, t := range mgr.Species() {
		tallies[t.Key] = t
	}

	species, err := engine.Species(ctx)
	if err != nil {
		return nil, fmt.Errorf("get species: %w", err)
	}
	for _, s := range species {
		summary := &SpeciesSummary{
			ScientificName: s.ScientificName,
			VernacularName: s.VernacularName,
		}
		if t := tallies[s.ScientificName]; t != nil {
			summary.Records = t.Count
			summary.First = t.First
			summary.Last = t.Last
		}
		report.Species = append(report.Species, summary)
	}

	report.Years = mgr.Years()
	report.TopObservers = mgr.Observers()
	if len(report.TopObservers) > topObservers {
		report.TopObservers = report.TopObservers[:topObservers]
	}

	// Search results are newest first
	report.Recent = all
	if len(report.Recent) > recentCount {
		report.Recent = report.Recent[:recentCount]
	}

	report.Runs, err = engine.IngestRuns(ctx, runCount)
	if err != nil {
		return nil, fmt.Errorf("get ingest runs: %w", err)
	}

	return report, nil
}
