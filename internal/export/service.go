package export

import (
	"context"
	"fmt"

	"ideaforge/api/internal/draft"
	"ideaforge/api/internal/store"
	"ideaforge/api/internal/validation"
)

// DataStore defines the data access the report builder needs.
type DataStore interface {
	GetIdea(ctx context.Context, ideaID string) (store.Idea, error)
	LatestValidationResult(ctx context.Context, ideaID string) (store.ValidationRecord, error)
	ListValidationResults(ctx context.Context, ideaID string, limit int) ([]store.ValidationRecord, error)
}

// Service generates validation report exports.
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

var fieldLabels = []struct {
	name  string
	label string
}{
	{draft.FieldTitle, "Idea Title"},
	{draft.FieldProblem, "Problem Statement"},
	{draft.FieldSolution, "Solution Approach"},
	{draft.FieldMarket, "Target Market"},
	{draft.FieldCompetition, "Competitive Landscape"},
	{draft.FieldBusinessModel, "Business Model"},
	{draft.FieldUniqueValue, "Unique Value Proposition"},
}

var dimensionLabels = map[string]string{
	validation.DimIdeaClarity:        "Idea Clarity",
	validation.DimMarketValidation:   "Market Validation",
	validation.DimCompetitiveIntel:   "Competitive Intelligence",
	validation.DimCustomerDiscovery:  "Customer Discovery",
	validation.DimProblemSolutionFit: "Problem-Solution Fit",
	validation.DimRiskAssessment:     "Risk Assessment",
}

// Export generates a validation report in the requested format.
// Returns ErrNoValidation if the idea has never been validated.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	idea, err := s.store.GetIdea(ctx, req.IdeaID)
	if err != nil {
		return nil, fmt.Errorf("get idea: %w", err)
	}

	latest, err := s.store.LatestValidationResult(ctx, req.IdeaID)
	if err != nil {
		return nil, ErrNoValidation
	}

	data := TemplateData{
		Title:       idea.Fields.Title,
		Owner:       idea.OwnerName,
		GeneratedAt: latest.CreatedAt,
		Score:       latest.Score,
		Verdict:     latest.Verdict,
		Unlocked:    latest.Score >= validation.StageUnlockThreshold,
	}
	if data.Title == "" {
		data.Title = "Untitled Idea"
	}

	if latest.IsRefinement {
		records, err := s.store.ListValidationResults(ctx, req.IdeaID, 2)
		if err == nil && len(records) == 2 {
			data.Delta = validation.FormatDelta(records[1].Score, records[0].Score)
		}
	}

	for _, dim := range latest.Dimensions {
		label, ok := dimensionLabels[dim.Name]
		if !ok {
			label = dim.Name
		}
		data.Dimensions = append(data.Dimensions, TemplateDimension{
			Label:      label,
			Display:    DimensionDisplay(dim.Score, dim.Scale),
			Normalized: int(dim.Normalized() + 0.5),
			Detail:     dim.Detail,
		})
	}

	for _, fl := range fieldLabels {
		value, _ := idea.Fields.Value(fl.name)
		data.Fields = append(data.Fields, TemplateField{Label: fl.label, Value: value})
	}

	html, err := RenderReportHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		return exportPDF(html, idea.Fields.Title)
	case FormatDOCX:
		return exportDOCX(html, idea.Fields.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
