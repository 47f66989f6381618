package store

import (
	"time"

	"ideaforge/api/internal/draft"
	"ideaforge/api/internal/validation"
)

type User struct {
	ID          string
	DisplayName string
	Email       string
	CreatedAt   time.Time
}

// Idea is the server-persisted draft record: the ServerSnapshot the
// comparison flow diffs against.
type Idea struct {
	ID        string
	OwnerName string
	Fields    draft.Fields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidationRecord is one persisted validation run. Every run is kept; the
// latest one is the idea's current result.
type ValidationRecord struct {
	ID           int64
	IdeaID       string
	Score        int
	Verdict      string
	Dimensions   []validation.Dimension
	IsRefinement bool
	CreatedAt    time.Time
}
