// Package stats provides occurrence summaries similar to the analysis views of the CLI
package stats

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Zerofisher/marinedb/pkg/ingest"
	"github.com/Zerofisher/marinedb/pkg/model"
)

const rule = "================================================================================"

// Manager tallies observations by species, observer and year
type Manager struct {
	species   map[string]*Tally
	observers map[string]*Tally
	years     map[string]*Tally
	total     int
	undated   int
}

// Tally is a count for one key, with the date range it covers
type Tally struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
}

// NewManager creates a new statistics manager
func NewManager() *Manager {
	return &Manager{
		species:   make(map[string]*Tally),
		observers: make(map[string]*Tally),
		years:     make(map[string]*Tally),
	}
}

// ProcessObservation updates statistics with one observation
func (m *Manager) ProcessObservation(o *model.Observation) {
	m.total++

	m.add(m.species, o.ScientificName, o.EventDate)
	m.add(m.observers, o.RecordedBy, o.EventDate)

	if len(o.EventDate) < 4 {
		m.undated++
		return
	}
	m.add(m.years, o.EventDate[:4], o.EventDate)
}

func (m *Manager) add(into map[string]*Tally, key, date string) {
	if key == "" {
		key = "(unknown)"
	}
	t, ok := into[key]
	if !ok {
		t = &Tally{Key: key}
		into[key] = t
	}
	t.Count++
	if date == "" {
		return
	}
	if t.First == "" || date < t.First {
		t.First = date
	}
	if date > t.Last {
		t.Last = date
	}
}

// Total returns the number of processed observations
func (m *Manager) Total() int {
	return m.total
}

// Species returns species tallies, largest first
func (m *Manager) Species() []*Tally { return byCount(m.species) }

// Observers returns observer tallies, largest first
func (m *Manager) Observers() []*Tally { return byCount(m.observers) }

// Years returns per-year tallies in chronological order
func (m *Manager) Years() []*Tally {
	out := collect(m.years)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func collect(in map[string]*Tally) []*Tally {
	out := make([]*Tally, 0, len(in))
	for _, t := range in {
		out = append(out, t)
	}
	return out
}

func byCount(in map[string]*Tally) []*Tally {
	out := collect(in)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// PrintSpecies writes per-species counts to the writer
func (m *Manager) PrintSpecies(w io.Writer) {
	printTallies(w, "Species", m.Species())
}

// PrintObservers writes per-observer counts to the writer
func (m *Manager) PrintObservers(w io.Writer) {
	printTallies(w, "Observers", m.Observers())
}

func printTallies(w io.Writer, title string, tallies []*Tally) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-40s %8s %12s %12s\n", "Name", "Records", "First", "Last")

	for _, t := range tallies {
		fmt.Fprintf(w, "%-40s %8d %12s %12s\n",
			truncate(t.Key, 40),
			t.Count,
			dash(t.First),
			dash(t.Last),
		)
	}
	fmt.Fprintln(w, rule)
}

// PrintYears writes per-year counts to the writer
func (m *Manager) PrintYears(w io.Writer) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Records per year")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-10s %8s %8s\n", "Year", "Records", "Share")

	for _, t := range m.Years() {
		fmt.Fprintf(w, "%-10s %8d %7.1f%%\n", t.Key, t.Count, percent(t.Count, m.total))
	}

	fmt.Fprintln(w, strings.Repeat("-", 80))
	if m.undated > 0 {
		fmt.Fprintf(w, "%-10s %8d %7.1f%%\n", "undated", m.undated, percent(m.undated, m.total))
	}
	fmt.Fprintf(w, "%-10s %8d\n", "Total", m.total)
	fmt.Fprintln(w, rule)
}

// PrintStatistics writes the store-wide aggregate counts
func PrintStatistics(w io.Writer, s *model.Statistics) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Database statistics")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-20s %d\n", "Records:", s.TotalRecords)
	fmt.Fprintf(w, "%-20s %d\n", "Species:", s.UniqueSpecies)
	fmt.Fprintf(w, "%-20s %d\n", "Observers:", s.TotalObservers)
	fmt.Fprintf(w, "%-20s %d\n", "Locations:", s.TotalLocations)
	fmt.Fprintf(w, "%-20s %s\n", "Period:", FormatPeriod(s.ObservationPeriod))
	fmt.Fprintln(w, rule)
}

// FormatPeriod renders an inclusive date range, or "-" when there is none
func FormatPeriod(p model.Period) string {
	if p.Start == "" && p.End == "" {
		return "-"
	}
	return p.Start + " .. " + p.End
}

// PrintSpeciesList writes the distinct species present in the store
func PrintSpeciesList(w io.Writer, species []*model.Species) {
	fmt.Fprintf(w, "%-40s %-30s %s\n", "Scientific name", "Vernacular name", "Rank")
	for _, s := range species {
		fmt.Fprintf(w, "%-40s %-30s %s\n",
			truncate(s.ScientificName, 40),
			truncate(dash(s.VernacularName), 30),
			dash(s.TaxonRank),
		)
	}
	fmt.Fprintf(w, "\n%d species\n", len(species))
}

// PrintIngestResult writes the summary of one ingestion run
func PrintIngestResult(w io.Writer, r *ingest.Result) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Ingest %s\n", r.Source)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-14s %s\n", "Run:", r.RunID)
	fmt.Fprintf(w, "%-14s %d\n", "Rows read:", r.RowsRead)
	fmt.Fprintf(w, "%-14s %d\n", "Rows written:", r.RowsWritten)
	fmt.Fprintf(w, "%-14s %d\n", "Rows skipped:", len(r.Skipped))
	fmt.Fprintf(w, "%-14s %s\n", "Duration:", formatDuration(r.Duration))

	if len(r.Skipped) > 0 {
		fmt.Fprintln(w, strings.Repeat("-", 80))
		for _, s := range r.Skipped {
			fmt.Fprintf(w, "  %s\n", s.Error())
		}
	}
	fmt.Fprintln(w, rule)
}

// PrintIngestRuns writes the ingestion history, newest first
func PrintIngestRuns(w io.Writer, runs []*model.IngestRun) {
	fmt.Fprintf(w, "%-36s %-20s %8s %8s %8s %10s  %s\n",
		"Run", "Started", "Read", "Written", "Skipped", "Duration", "Source")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s %-20s %8d %8d %8d %10s  %s\n",
			r.RunID,
			r.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			r.RowsRead,
			r.RowsWritten,
			r.RowsSkipped,
			formatDuration(r.FinishedAt.Sub(r.StartedAt)),
			r.Source,
		)
	}
}

// Helper functions

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
