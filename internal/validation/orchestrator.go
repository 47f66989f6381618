package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ideaforge/api/internal/draft"
)

var (
	// ErrMissingRequiredFields is a local precondition failure; no network
	// call is made.
	ErrMissingRequiredFields = errors.New("idea needs a title and a problem statement before validation")
	// ErrValidationInProgress rejects reentrant validation. Validation is an
	// explicit user action and must not be silently queued or reordered.
	ErrValidationInProgress = errors.New("a validation is already in progress")
	// ErrValidationFailed wraps backend or network failures during scoring.
	ErrValidationFailed = errors.New("validation failed")
)

// Scorer submits a draft to the AI validator backend.
type Scorer interface {
	ScoreIdea(ctx context.Context, fields draft.Fields, isRefinement bool) (Result, error)
}

// RefinementContext holds the score captured when a refinement validation is
// initiated. PreviousScore is only meaningful while the refinement is live.
type RefinementContext struct {
	PreviousScore int
}

// Outcome is what a completed validation reports to the caller.
type Outcome struct {
	Result        Result
	Refined       bool
	PreviousScore int
	Delta         string // signed, e.g. "+13" or "-8"; set only when Refined
}

// Orchestrator runs the validate/refine lifecycle for one idea. Exactly one
// validation may be in flight; a failed run never disturbs the previously
// earned result.
type Orchestrator struct {
	scorer Scorer

	mu      sync.Mutex
	pending bool
	result  *Result
	refine  *RefinementContext
}

func NewOrchestrator(scorer Scorer) *Orchestrator {
	return &Orchestrator{scorer: scorer}
}

// Validate submits the draft snapshot for scoring. With isRefinement set and
// a prior result present, the previous score is captured before dispatch and
// the outcome reports the delta.
func (o *Orchestrator) Validate(ctx context.Context, fields draft.Fields, isRefinement bool) (Outcome, error) {
	if strings.TrimSpace(fields.Title) == "" || strings.TrimSpace(fields.Problem) == "" {
		return Outcome{}, ErrMissingRequiredFields
	}

	o.mu.Lock()
	if o.pending {
		o.mu.Unlock()
		return Outcome{}, ErrValidationInProgress
	}
	o.pending = true
	if isRefinement && o.result != nil {
		o.refine = &RefinementContext{PreviousScore: o.result.Score}
	}
	o.mu.Unlock()

	result, err := o.scorer.ScoreIdea(ctx, fields, isRefinement)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = false

	if err != nil {
		// Previous result stays untouched; any pending refinement context
		// is cleared.
		o.refine = nil
		return Outcome{}, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	o.result = &result
	outcome := Outcome{Result: result}
	if o.refine != nil {
		outcome.Refined = true
		outcome.PreviousScore = o.refine.PreviousScore
		outcome.Delta = FormatDelta(o.refine.PreviousScore, result.Score)
		o.refine = nil
	}
	return outcome, nil
}

// Pending reports whether a validation is in flight; the only state in which
// the UI shows a progress indicator.
func (o *Orchestrator) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending
}

// Refining reports whether a refinement validation is currently live.
func (o *Orchestrator) Refining() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refine != nil
}

// Latest returns a copy of the most recent successful result, or nil if the
// idea was never scored.
func (o *Orchestrator) Latest() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.result == nil {
		return nil
	}
	result := *o.result
	return &result
}
