// Package filter provides observation filter expressions using expr-lang/expr
package filter

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/Zerofisher/marinedb/pkg/model"
)

// ObservationEnv is the environment for expression evaluation.
// It maps dotted field names to observation data.
type ObservationEnv struct {
	OccurrenceID string `expr:"occurrence_id"`

	Organism struct {
		ID             string `expr:"id"`
		ScientificName string `expr:"scientific_name"`
		VernacularName string `expr:"vernacular_name"`
	} `expr:"organism"`

	Observer struct {
		RecordedBy string `expr:"recorded_by"`
	} `expr:"observer"`

	Location struct {
		Locality        string `expr:"locality"`
		WaterBody       string `expr:"water_body"`
		HigherGeography string `expr:"higher_geography"`
	} `expr:"location"`

	Event struct {
		ID   string `expr:"id"`
		Date string `expr:"date"`
		Time string `expr:"time"`
		Year int    `expr:"year"`
	} `expr:"event"`

	Coord struct {
		Lat       float64 `expr:"lat"`
		Lon       float64 `expr:"lon"`
		Precision float64 `expr:"precision"`
		Datum     string  `expr:"datum"`
	} `expr:"coord"`

	// Shorthand flags (for bare words like "dated", "located")
	HasDate   bool `expr:"has_date"`
	HasCoords bool `expr:"has_coords"`
}

// Compile compiles a filter expression into a predicate over observations.
func Compile(filterStr string) (func(*model.Observation) bool, error) {
	processed := preprocessFilter(filterStr)

	program, err := expr.Compile(processed, expr.Env(ObservationEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter '%s': %w", filterStr, err)
	}

	return func(o *model.Observation) bool {
		result, err := expr.Run(program, observationToEnv(o))
		if err != nil {
			return false
		}
		b, ok := result.(bool)
		return ok && b
	}, nil
}

// Apply keeps the observations matching keep, preserving order.
func Apply(obs []*model.Observation, keep func(*model.Observation) bool) []*model.Observation {
	if keep == nil {
		return obs
	}
	out := obs[:0:0]
	for _, o := range obs {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

// shorthands are bare words rewritten to their flag fields.
var shorthands = map[string]string{
	"dated":   "has_date",
	"located": "has_coords",
}

// preprocessFilter rewrites shorthand words and "in {a, b}" set syntax.
// Quoted strings are left untouched.
func preprocessFilter(filter string) string {
	tokens := tokenizeFilter(filter)
	for i, tok := range tokens {
		if isQuoted(tok) {
			continue
		}
		replacement, ok := shorthands[strings.ToLower(tok)]
		if !ok {
			continue
		}
		// Standalone only: not part of a dotted path.
		if (i+1 >= len(tokens) || tokens[i+1] != ".") && (i == 0 || tokens[i-1] != ".") {
			tokens[i] = replacement
		}
	}

	for i, tok := range tokens {
		switch tok {
		case "{":
			tokens[i] = "["
		case "}":
			tokens[i] = "]"
		}
	}
	return strings.Join(tokens, "")
}

// tokenizeFilter breaks a filter string into tokens while preserving structure.
func tokenizeFilter(filter string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	var quote rune
	for _, ch := range filter {
		if quote != 0 {
			current.WriteRune(ch)
			if ch == quote {
				quote = 0
				flush()
			}
			continue
		}
		switch ch {
		case '"', '\'':
			flush()
			quote = ch
			current.WriteRune(ch)
		case ' ', '\t', '\n', '.', '(', ')', '[', ']', '{', '}', ',', '!':
			flush()
			tokens = append(tokens, string(ch))
		default:
			current.WriteRune(ch)
		}
	}
	flush()
	return tokens
}

func isQuoted(tok string) bool {
	return len(tok) >= 2 && (tok[0] == '"' || tok[0] == '\'')
}

// observationToEnv converts an observation to an ObservationEnv.
func observationToEnv(o *model.Observation) ObservationEnv {
	env := ObservationEnv{OccurrenceID: o.OccurrenceID}

	env.Organism.ID = o.OrganismID
	env.Organism.ScientificName = o.ScientificName
	env.Organism.VernacularName = o.VernacularName

	env.Observer.RecordedBy = o.RecordedBy

	env.Location.Locality = o.Locality
	env.Location.WaterBody = o.WaterBody
	env.Location.HigherGeography = o.HigherGeography

	env.Event.ID = o.EventID
	env.Event.Date = o.EventDate
	env.Event.Time = o.EventTime
	if len(o.EventDate) >= 4 {
		fmt.Sscanf(o.EventDate[:4], "%d", &env.Event.Year)
	}

	env.Coord.Lat = o.DecimalLatitude
	env.Coord.Lon = o.DecimalLongitude
	env.Coord.Precision = o.CoordinatePrecision
	env.Coord.Datum = o.GeodeticDatum

	env.HasDate = o.EventDate != ""
	env.HasCoords = o.DecimalLatitude != 0 || o.DecimalLongitude != 0

	return env
}
