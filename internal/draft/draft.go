// Package draft holds the in-memory idea draft, its debounced autosave
// engine, and the comparison against the last server-persisted snapshot.
package draft

import (
	"fmt"
	"strings"
	"time"
)

// Fields is the flat idea record. Every field is always present; the empty
// string is the unset sentinel.
type Fields struct {
	Title         string `json:"ideaTitle"`
	Problem       string `json:"problemStatement"`
	Solution      string `json:"solutionApproach"`
	Market        string `json:"targetMarket"`
	Competition   string `json:"competitiveLandscape"`
	BusinessModel string `json:"businessModel"`
	UniqueValue   string `json:"uniqueValueProposition"`
}

const (
	FieldTitle         = "ideaTitle"
	FieldProblem       = "problemStatement"
	FieldSolution      = "solutionApproach"
	FieldMarket        = "targetMarket"
	FieldCompetition   = "competitiveLandscape"
	FieldBusinessModel = "businessModel"
	FieldUniqueValue   = "uniqueValueProposition"
)

// FieldNames lists the editable fields in display order.
func FieldNames() []string {
	return []string{
		FieldTitle,
		FieldProblem,
		FieldSolution,
		FieldMarket,
		FieldCompetition,
		FieldBusinessModel,
		FieldUniqueValue,
	}
}

// With returns a copy of f with one named field replaced.
func (f Fields) With(name, value string) (Fields, error) {
	switch name {
	case FieldTitle:
		f.Title = value
	case FieldProblem:
		f.Problem = value
	case FieldSolution:
		f.Solution = value
	case FieldMarket:
		f.Market = value
	case FieldCompetition:
		f.Competition = value
	case FieldBusinessModel:
		f.BusinessModel = value
	case FieldUniqueValue:
		f.UniqueValue = value
	default:
		return f, fmt.Errorf("unknown field %q", name)
	}
	return f, nil
}

// Value returns the named field, with ok=false for unknown names.
func (f Fields) Value(name string) (string, bool) {
	switch name {
	case FieldTitle:
		return f.Title, true
	case FieldProblem:
		return f.Problem, true
	case FieldSolution:
		return f.Solution, true
	case FieldMarket:
		return f.Market, true
	case FieldCompetition:
		return f.Competition, true
	case FieldBusinessModel:
		return f.BusinessModel, true
	case FieldUniqueValue:
		return f.UniqueValue, true
	}
	return "", false
}

// Empty reports whether every field is blank.
func (f Fields) Empty() bool {
	for _, name := range FieldNames() {
		value, _ := f.Value(name)
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

// Saved is the last draft record the server actually stored, used as the
// comparison baseline. It is replaced wholesale on fetch or successful save.
type Saved struct {
	Fields    Fields
	UpdatedAt time.Time
}
