// Package assist requests single-field AI suggestions and applies them
// through the draft store, so an accepted suggestion rides the normal
// autosave path exactly like a manual edit.
package assist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ideaforge/api/internal/draft"
)

var (
	// ErrSuggestionInProgress rejects a second request for the same field
	// while one is outstanding. Different fields may run concurrently.
	ErrSuggestionInProgress = errors.New("a suggestion for this field is already in progress")
	// ErrSuggestionFailed wraps backend failures; the target field is left
	// untouched.
	ErrSuggestionFailed = errors.New("suggestion failed")
)

// Suggester asks the AI backend for an improved value for one field.
type Suggester interface {
	SuggestField(ctx context.Context, field string, fields draft.Fields) (string, error)
}

// Requester runs fire-and-forget field suggestions for one idea. It never
// blocks autosave or validation; it only touches the draft through SetField.
type Requester struct {
	suggester Suggester
	store     *draft.Manager

	mu      sync.Mutex
	pending map[string]bool
}

func NewRequester(suggester Suggester, store *draft.Manager) *Requester {
	return &Requester{
		suggester: suggester,
		store:     store,
		pending:   make(map[string]bool),
	}
}

// Request fetches a suggestion for the named field and applies it to the
// draft store on success. At most one request per field is outstanding.
func (r *Requester) Request(ctx context.Context, field string) (string, error) {
	if _, ok := (draft.Fields{}).Value(field); !ok {
		return "", fmt.Errorf("unknown field %q", field)
	}

	r.mu.Lock()
	if r.pending[field] {
		r.mu.Unlock()
		return "", ErrSuggestionInProgress
	}
	r.pending[field] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, field)
		r.mu.Unlock()
	}()

	value, err := r.suggester.SuggestField(ctx, field, r.store.Snapshot())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSuggestionFailed, err)
	}

	// Applying through SetField triggers the regular autosave debounce.
	if _, err := r.store.SetField(field, value); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSuggestionFailed, err)
	}
	return value, nil
}
