package expert

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Zerofisher/marinedb/pkg/model"
)

// Analyzer runs the record checks over a stream of observations and keeps
// every finding, indexed by occurrence id.
type Analyzer struct {
	mu       sync.RWMutex
	now      func() time.Time
	dups     *DuplicateContext
	infos    []*ExpertInfo
	byRecord map[string][]*ExpertInfo
	records  int
	severity map[Severity]int
	groups   map[Group]int
}

// Statistics summarizes what an Analyzer has seen so far.
type Statistics struct {
	Records         int
	TotalCount      int
	CountBySeverity map[Severity]int
	CountByGroup    map[Group]int
}

func NewAnalyzer() *Analyzer {
	a := &Analyzer{now: time.Now}
	a.clear()
	return a
}

func (a *Analyzer) clear() {
	a.dups = NewDuplicateContext()
	a.infos = nil
	a.byRecord = make(map[string][]*ExpertInfo)
	a.records = 0
	a.severity = make(map[Severity]int)
	a.groups = make(map[Group]int)
}

// SetClock replaces the time source used to detect dates in the future.
func (a *Analyzer) SetClock(now func() time.Time) {
	a.mu.Lock()
	a.now = now
	a.mu.Unlock()
}

// Analyze checks one observation and returns the findings for it.
func (a *Analyzer) Analyze(o *model.Observation) []*ExpertInfo {
	a.mu.Lock()
	defer a.mu.Unlock()

	found := append(checkRecord(o, a.now()), a.dups.Analyze(o)...)
	a.records++
	for _, info := range found {
		a.infos = append(a.infos, info)
		a.byRecord[info.OccurrenceID] = append(a.byRecord[info.OccurrenceID], info)
		a.severity[info.Severity]++
		a.groups[info.Group]++
	}
	return found
}

func (a *Analyzer) GetInfos() []*ExpertInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.infos)
}

// GetInfosBySeverity returns the findings at or above minSeverity.
func (a *Analyzer) GetInfosBySeverity(minSeverity Severity) []*ExpertInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return atLeast(a.infos, minSeverity)
}

func (a *Analyzer) GetStatistics() Statistics {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Statistics{
		Records:         a.records,
		TotalCount:      len(a.infos),
		CountBySeverity: maps.Clone(a.severity),
		CountByGroup:    maps.Clone(a.groups),
	}
}

// HasIssues reports whether any warning or error was found.
func (a *Analyzer) HasIssues() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.severity[SeverityWarning]+a.severity[SeverityError] > 0
}

// ForRecord renders the findings for one occurrence, one line each.
func (a *Analyzer) ForRecord(occurrenceID string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	infos := a.byRecord[occurrenceID]
	lines := make([]string, 0, len(infos))
	for _, info := range infos {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", info.Severity.Symbol(), info.Summary, info.Details))
	}
	return lines
}

// Reset forgets every finding, including the duplicate index.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	a.clear()
	a.mu.Unlock()
}

const rule = "================================================================================"

func (a *Analyzer) PrintSummary(w io.Writer) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Data Quality Summary")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Records checked: %d\n", a.records)
	fmt.Fprintf(w, "Findings:        %d\n", len(a.infos))
	if len(a.infos) == 0 {
		fmt.Fprintln(w, rule)
		return
	}

	fmt.Fprintln(w, "\nBy severity:")
	for sev := SeverityError; sev >= SeverityChat; sev-- {
		if n := a.severity[sev]; n > 0 {
			fmt.Fprintf(w, "  [%s] %-8s %d\n", sev.Symbol(), sev, n)
		}
	}

	fmt.Fprintln(w, "\nBy group:")
	for _, g := range slices.Sorted(maps.Keys(a.groups)) {
		fmt.Fprintf(w, "  %-12s %d\n", g, a.groups[g])
	}
	fmt.Fprintln(w, rule)
}

// PrintDetails lists every finding at or above minSeverity in the order found.
func (a *Analyzer) PrintDetails(w io.Writer, minSeverity Severity) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Data Quality Details")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-20s %-8s %-12s %-36s %s\n", "Occurrence", "Severity", "Group", "Summary", "Details")
	fmt.Fprintln(w, strings.Repeat("-", len(rule)))
	for _, info := range atLeast(a.infos, minSeverity) {
		fmt.Fprintf(w, "%-20s %-8s %-12s %-36s %s\n",
			clip(info.OccurrenceID, 20), info.Severity, info.Group, info.Summary, clip(info.Details, 40))
	}
	fmt.Fprintln(w, rule)
}

func atLeast(infos []*ExpertInfo, minSeverity Severity) []*ExpertInfo {
	var out []*ExpertInfo
	for _, info := range infos {
		if info.Severity >= minSeverity {
			out = append(out, info)
		}
	}
	return out
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
