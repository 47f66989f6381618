package draft

import "testing"

func TestDiffReportsChangedFields(t *testing.T) {
	server := Fields{Title: "FarmConnect", Problem: "old problem"}
	local := Fields{Title: "FarmConnect", Problem: "new problem", Market: "rural co-ops"}

	diffs := Diff(&server, local)
	if len(diffs) != len(FieldNames()) {
		t.Fatalf("expected one row per field, got %d", len(diffs))
	}

	byField := make(map[string]FieldDiff, len(diffs))
	for _, d := range diffs {
		byField[d.Field] = d
	}

	if byField[FieldTitle].Changed {
		t.Error("identical title reported as changed")
	}
	problem := byField[FieldProblem]
	if !problem.Changed || problem.ServerValue != "old problem" || problem.LocalValue != "new problem" {
		t.Errorf("problem diff wrong: %+v", problem)
	}
	market := byField[FieldMarket]
	if !market.Changed || market.ServerValue != "" || market.LocalValue != "rural co-ops" {
		t.Errorf("market diff wrong: %+v", market)
	}
}

func TestDiffWithoutServerSnapshotIsVacuous(t *testing.T) {
	local := Fields{Title: "never saved", Solution: "something"}

	diffs := Diff(nil, local)
	if len(diffs) != len(FieldNames()) {
		t.Fatalf("expected one row per field, got %d", len(diffs))
	}
	for _, d := range diffs {
		if d.Changed {
			t.Errorf("field %s reported changed with no baseline", d.Field)
		}
		if d.ServerValue != "" {
			t.Errorf("field %s has a server value with no baseline", d.Field)
		}
	}
}
