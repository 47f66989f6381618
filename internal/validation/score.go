package validation

import "fmt"

// Verdict is the categorical outcome of a validation run.
type Verdict string

const (
	VerdictGo     Verdict = "GO"
	VerdictRefine Verdict = "REFINE"
	VerdictPivot  Verdict = "PIVOT"
)

// Two distinct score policies. The verdict banding cutoff and the
// stage-unlock cutoff look similar but are independently configurable and
// must never be unified.
const (
	// GoThreshold is the overall score at which the verdict bands to GO.
	GoThreshold = 70
	// RefineThreshold is the floor of the REFINE band; below it the verdict
	// is PIVOT.
	RefineThreshold = 40
	// StageUnlockThreshold gates access to downstream stages (pitch deck,
	// deep analysis). Separate policy from the verdict banding.
	StageUnlockThreshold = 60
)

// VerdictFor bands an overall score into a verdict.
func VerdictFor(score int) Verdict {
	switch {
	case score >= GoThreshold:
		return VerdictGo
	case score >= RefineThreshold:
		return VerdictRefine
	default:
		return VerdictPivot
	}
}

// Unlocked reports whether a score opens the downstream stages.
func Unlocked(score int) bool {
	return score >= StageUnlockThreshold
}

// FormatDelta renders a refinement score change: non-negative deltas get an
// explicit plus sign, negative deltas render as-is.
func FormatDelta(previous, current int) string {
	delta := current - previous
	if delta >= 0 {
		return fmt.Sprintf("+%d", delta)
	}
	return fmt.Sprintf("%d", delta)
}
