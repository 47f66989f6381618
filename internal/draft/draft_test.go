package draft

import "testing"

func TestWithReplacesSingleField(t *testing.T) {
	base := Fields{Title: "FarmConnect", Problem: "middlemen capture margin"}

	next, err := base.With(FieldSolution, "direct farm-to-buyer marketplace")
	if err != nil {
		t.Fatalf("With failed: %v", err)
	}
	if next.Solution != "direct farm-to-buyer marketplace" {
		t.Errorf("solution not set: %q", next.Solution)
	}
	if next.Title != "FarmConnect" || next.Problem != "middlemen capture margin" {
		t.Error("unrelated fields must be untouched")
	}
	if base.Solution != "" {
		t.Error("With must not mutate the receiver")
	}
}

func TestWithRejectsUnknownField(t *testing.T) {
	if _, err := (Fields{}).With("pitchDeckTheme", "dark"); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValueCoversEveryDeclaredField(t *testing.T) {
	fields := Fields{}
	for _, name := range FieldNames() {
		set, err := fields.With(name, "x-"+name)
		if err != nil {
			t.Fatalf("With(%s) failed: %v", name, err)
		}
		got, ok := set.Value(name)
		if !ok {
			t.Fatalf("Value(%s) not ok", name)
		}
		if got != "x-"+name {
			t.Errorf("Value(%s) = %q", name, got)
		}
	}
	if _, ok := fields.Value("nope"); ok {
		t.Error("Value must reject unknown names")
	}
}

func TestEmpty(t *testing.T) {
	if !(Fields{}).Empty() {
		t.Error("zero value should be empty")
	}
	if !(Fields{Title: "   "}).Empty() {
		t.Error("whitespace-only fields count as empty")
	}
	if (Fields{Market: "smallholder farmers"}).Empty() {
		t.Error("populated draft is not empty")
	}
}
