package validation

import "time"

// Dimension names of the multi-dimensional validator.
const (
	DimIdeaClarity        = "ideaClarity"
	DimMarketValidation   = "marketValidation"
	DimCompetitiveIntel   = "competitiveIntelligence"
	DimCustomerDiscovery  = "customerDiscovery"
	DimProblemSolutionFit = "problemSolutionFit"
	DimRiskAssessment     = "riskAssessment"
)

// DimensionScales declares the maximum of each dimension's native scale.
// The backend scores some dimensions out of 10 and others out of 100; the
// orchestrator treats the raw values as opaque and normalizes explicitly.
var DimensionScales = map[string]int{
	DimIdeaClarity:        10,
	DimMarketValidation:   100,
	DimCompetitiveIntel:   100,
	DimCustomerDiscovery:  100,
	DimProblemSolutionFit: 10,
	DimRiskAssessment:     10,
}

// Dimension is one sub-score of a validation result, on its own scale.
type Dimension struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Scale  int     `json:"scale"`
	Detail string  `json:"detail,omitempty"`
}

// Normalized maps the raw sub-score onto 0-100 using the declared scale.
func (d Dimension) Normalized() float64 {
	scale := d.Scale
	if scale == 0 {
		scale = DimensionScales[d.Name]
	}
	if scale == 0 {
		scale = 100
	}
	return d.Score / float64(scale) * 100
}

// Result is an immutable validation snapshot. It is replaced atomically,
// never mutated field-by-field.
type Result struct {
	Score       int         `json:"score"`
	Verdict     Verdict     `json:"verdict"`
	Dimensions  []Dimension `json:"dimensions"`
	ValidatedAt time.Time   `json:"validatedAt"`
}

// Unlocked reports whether this result opens the downstream stages.
func (r Result) Unlocked() bool {
	return Unlocked(r.Score)
}
