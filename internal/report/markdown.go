package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Zerofisher/marinedb/stats"
)

// WriteMarkdown renders the report as Markdown.
func WriteMarkdown(w io.Writer, d *Data) error {
	var b strings.Builder

	b.WriteString("# Marine Life Observation Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", d.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	b.WriteString("## Overview\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	if s := d.Statistics; s != nil {
		fmt.Fprintf(&b, "| Records | %d |\n", s.TotalRecords)
		fmt.Fprintf(&b, "| Species | %d |\n", s.UniqueSpecies)
		fmt.Fprintf(&b, "| Observers | %d |\n", s.TotalObservers)
		fmt.Fprintf(&b, "| Locations | %d |\n", s.TotalLocations)
		fmt.Fprintf(&b, "| Observation period | %s |\n", stats.FormatPeriod(s.ObservationPeriod))
	}
	b.WriteString("\n")

	b.WriteString("## Species\n\n")
	if len(d.Species) == 0 {
		b.WriteString("_None._\n\n")
	} else {
		b.WriteString("| Scientific name | Vernacular name | Records | First | Last |\n")
		b.WriteString("|---|---|---:|---|---|\n")
		for _, s := range d.Species {
			fmt.Fprintf(&b, "| %s | %s | %d | %s | %s |\n",
				cell(s.ScientificName), cell(s.VernacularName), s.Records, cell(s.First), cell(s.Last))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Records per year\n\n")
	writeTallies(&b, "Year", d.Years)

	b.WriteString("## Top observers\n\n")
	writeTallies(&b, "Observer", d.TopObservers)

	b.WriteString("## Recent observations\n\n")
	if len(d.Recent) == 0 {
		b.WriteString("_None._\n\n")
	} else {
		b.WriteString("| Occurrence | Date | Species | Locality | Observer |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, o := range d.Recent {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				cell(o.OccurrenceID), cell(o.EventDate), cell(o.ScientificName), cell(o.Locality), cell(o.RecordedBy))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Ingest runs\n\n")
	if len(d.Runs) == 0 {
		b.WriteString("_None._\n")
	} else {
		b.WriteString("| Run | Started | Source | Read | Written | Skipped |\n")
		b.WriteString("|---|---|---|---:|---:|---:|\n")
		for _, r := range d.Runs {
			fmt.Fprintf(&b, "| %s | %s | %s | %d | %d | %d |\n",
				cell(r.RunID), r.StartedAt.UTC().Format("2006-01-02 15:04:05"), cell(r.Source),
				r.RowsRead, r.RowsWritten, r.RowsSkipped)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeTallies(b *strings.Builder, label string, tallies []*stats.Tally) {
	if len(tallies) == 0 {
		b.WriteString("_None._\n\n")
		return
	}
	fmt.Fprintf(b, "| %s | Records |\n|---|---:|\n", label)
	for _, t := range tallies {
		fmt.Fprintf(b, "| %s | %d |\n", cell(t.Key), t.Count)
	}
	b.WriteString("\n")
}

// cell escapes a value for a Markdown table.
func cell(s string) string {
	if s == "" {
		return "-"
	}
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
