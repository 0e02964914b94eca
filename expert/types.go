// Package expert provides data-quality analysis of occurrence records
package expert

import (
	"fmt"
)

// Severity represents the severity level of an expert info
type Severity int

const (
	SeverityChat    Severity = iota // Informational
	SeverityNote                    // Notable but not necessarily problematic
	SeverityWarning                 // Probably wrong
	SeverityError                   // Definitely wrong
)

// String returns a human-readable string for the severity
func (s Severity) String() string {
	switch s {
	case SeverityChat:
		return "Chat"
	case SeverityNote:
		return "Note"
	case SeverityWarning:
		return "Warning"
	case SeverityError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Symbol returns a single character symbol for the severity
func (s Severity) Symbol() string {
	switch s {
	case SeverityChat:
		return "."
	case SeverityNote:
		return "i"
	case SeverityWarning:
		return "!"
	case SeverityError:
		return "X"
	default:
		return "?"
	}
}

// ParseSeverity parses a minimum severity name
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "chat":
		return SeverityChat, nil
	case "note":
		return SeverityNote, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	}
	return SeverityChat, fmt.Errorf("unknown severity level: %s (use: chat, note, warning, error)", s)
}

// Group represents the category of expert info
type Group string

const (
	GroupCoordinates Group = "Coordinates" // Position problems
	GroupDate        Group = "Date"        // Event date and time problems
	GroupTaxonomy    Group = "Taxonomy"    // Missing or inconsistent names
	GroupProvenance  Group = "Provenance"  // Who recorded it
	GroupDuplicate   Group = "Duplicate"   // Repeated sightings
)

// ExpertInfo represents a single expert information entry
type ExpertInfo struct {
	OccurrenceID string   // Record where the issue was detected
	Severity     Severity // Severity level
	Group        Group    // Category group
	Summary      string   // Short summary (e.g., "Latitude Out Of Range")
	Details      string   // Detailed description
	Related      []string // Related occurrence ids
}

// String returns a formatted string representation
func (e *ExpertInfo) String() string {
	return fmt.Sprintf("[%s] %s %s: %s - %s",
		e.Severity.Symbol(),
		e.OccurrenceID,
		e.Group,
		e.Summary,
		e.Details,
	)
}

// CheckType represents a specific record check
type CheckType int

const (
	LatitudeOutOfRange CheckType = iota
	LongitudeOutOfRange
	NullIsland
	NegativePrecision
	MissingDate
	MalformedDate
	FutureDate
	MalformedTime
	MissingScientificName
	VernacularWithoutScientific
	MissingObserver
	DuplicateSighting
)

// String returns a human-readable description
func (t CheckType) String() string {
	switch t {
	case LatitudeOutOfRange:
		return "Latitude Out Of Range"
	case LongitudeOutOfRange:
		return "Longitude Out Of Range"
	case NullIsland:
		return "Zero Coordinates"
	case NegativePrecision:
		return "Negative Coordinate Precision"
	case MissingDate:
		return "Missing Event Date"
	case MalformedDate:
		return "Malformed Event Date"
	case FutureDate:
		return "Event Date In Future"
	case MalformedTime:
		return "Malformed Event Time"
	case MissingScientificName:
		return "Missing Scientific Name"
	case VernacularWithoutScientific:
		return "Common Name Without Scientific Name"
	case MissingObserver:
		return "Missing Observer"
	case DuplicateSighting:
		return "Duplicate Sighting"
	default:
		return "Unknown Issue"
	}
}

// Severity returns the default severity for this check
func (t CheckType) Severity() Severity {
	switch t {
	case MissingObserver:
		return SeverityChat
	case NullIsland, MissingDate, DuplicateSighting:
		return SeverityNote
	case MalformedDate, FutureDate, MalformedTime, MissingScientificName, VernacularWithoutScientific, NegativePrecision:
		return SeverityWarning
	case LatitudeOutOfRange, LongitudeOutOfRange:
		return SeverityError
	default:
		return SeverityNote
	}
}

// Group returns the category of this check
func (t CheckType) Group() Group {
	switch t {
	case LatitudeOutOfRange, LongitudeOutOfRange, NullIsland, NegativePrecision:
		return GroupCoordinates
	case MissingDate, MalformedDate, FutureDate, MalformedTime:
		return GroupDate
	case MissingScientificName, VernacularWithoutScientific:
		return GroupTaxonomy
	case MissingObserver:
		return GroupProvenance
	default:
		return GroupDuplicate
	}
}
