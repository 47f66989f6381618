package draft

// FieldDiff is one row of the saved-data comparison view.
type FieldDiff struct {
	Field       string `json:"field"`
	ServerValue string `json:"serverValue"`
	LocalValue  string `json:"localValue"`
	Changed     bool   `json:"changed"`
}

// Diff compares the local draft against the last server-persisted fields.
// It is pure: no I/O, no resolution decision. With no server baseline every
// field is reported as local-only (Changed=false) rather than failing.
func Diff(server *Fields, local Fields) []FieldDiff {
	diffs := make([]FieldDiff, 0, len(FieldNames()))
	for _, name := range FieldNames() {
		localValue, _ := local.Value(name)
		row := FieldDiff{Field: name, LocalValue: localValue}
		if server != nil {
			serverValue, _ := server.Value(name)
			row.ServerValue = serverValue
			row.Changed = serverValue != localValue
		}
		diffs = append(diffs, row)
	}
	return diffs
}
