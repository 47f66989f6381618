package validation

import "testing"

func TestFormatDelta(t *testing.T) {
	cases := []struct {
		previous, current int
		want              string
	}{
		{55, 68, "+13"},
		{70, 62, "-8"},
		{50, 50, "+0"},
		{0, 100, "+100"},
	}
	for _, tc := range cases {
		if got := FormatDelta(tc.previous, tc.current); got != tc.want {
			t.Errorf("FormatDelta(%d, %d) = %q, want %q", tc.previous, tc.current, got, tc.want)
		}
	}
}

func TestVerdictBanding(t *testing.T) {
	cases := []struct {
		score int
		want  Verdict
	}{
		{100, VerdictGo},
		{70, VerdictGo},
		{69, VerdictRefine},
		{40, VerdictRefine},
		{39, VerdictPivot},
		{0, VerdictPivot},
	}
	for _, tc := range cases {
		if got := VerdictFor(tc.score); got != tc.want {
			t.Errorf("VerdictFor(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestUnlockThresholdIsDistinctFromVerdictBanding(t *testing.T) {
	// Score 62 bands to REFINE but still unlocks downstream stages.
	if VerdictFor(62) != VerdictRefine {
		t.Error("62 should band to REFINE")
	}
	if !Unlocked(62) {
		t.Error("62 should unlock downstream stages")
	}
	if Unlocked(59) {
		t.Error("59 should not unlock downstream stages")
	}
}

func TestDimensionNormalized(t *testing.T) {
	tenPoint := Dimension{Name: DimIdeaClarity, Score: 7, Scale: 10}
	if got := tenPoint.Normalized(); got != 70 {
		t.Errorf("7/10 normalized = %v, want 70", got)
	}

	hundredPoint := Dimension{Name: DimMarketValidation, Score: 55, Scale: 100}
	if got := hundredPoint.Normalized(); got != 55 {
		t.Errorf("55/100 normalized = %v, want 55", got)
	}

	// Scale omitted by the backend: fall back to the declared scale.
	declared := Dimension{Name: DimProblemSolutionFit, Score: 4}
	if got := declared.Normalized(); got != 40 {
		t.Errorf("4 on declared 10-scale normalized = %v, want 40", got)
	}
}
