package assist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ideaforge/api/internal/draft"
)

type stubSaver struct{}

func (stubSaver) SaveDraft(ctx context.Context, ideaID string, fields draft.Fields) (draft.Saved, error) {
	return draft.Saved{Fields: fields, UpdatedAt: time.Now()}, nil
}

type fakeSuggester struct {
	mu      sync.Mutex
	calls   []string
	value   string
	err     error
	release chan struct{}
}

func (f *fakeSuggester) SuggestField(ctx context.Context, field string, fields draft.Fields) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, field)
	release := f.release
	value, err := f.value, f.err
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	return value, err
}

func newManager() *draft.Manager {
	return draft.NewManager("idea-1", stubSaver{}, draft.Options{
		Debounce:  10 * time.Millisecond,
		SavedHold: 10 * time.Millisecond,
	})
}

func TestRequestAppliesSuggestionThroughDraftStore(t *testing.T) {
	manager := newManager()
	suggester := &fakeSuggester{value: "a crisper problem statement"}
	r := NewRequester(suggester, manager)

	value, err := r.Request(context.Background(), draft.FieldProblem)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if value != "a crisper problem statement" {
		t.Errorf("value = %q", value)
	}
	if got := manager.Snapshot().Problem; got != "a crisper problem statement" {
		t.Errorf("suggestion not applied to the draft: %q", got)
	}
}

func TestRequestRejectsUnknownField(t *testing.T) {
	r := NewRequester(&fakeSuggester{value: "x"}, newManager())
	if _, err := r.Request(context.Background(), "slideTheme"); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestSecondRequestForSameFieldIsRejected(t *testing.T) {
	manager := newManager()
	release := make(chan struct{})
	suggester := &fakeSuggester{value: "v", release: release}
	r := NewRequester(suggester, manager)

	done := make(chan error, 1)
	go func() {
		_, err := r.Request(context.Background(), draft.FieldTitle)
		done <- err
	}()

	// Wait for the first request to be registered as pending.
	deadline := time.Now().Add(time.Second)
	for {
		r.mu.Lock()
		pending := r.pending[draft.FieldTitle]
		r.mu.Unlock()
		if pending {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first request never became pending")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := r.Request(context.Background(), draft.FieldTitle); !errors.Is(err, ErrSuggestionInProgress) {
		t.Fatalf("got %v, want ErrSuggestionInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first request failed: %v", err)
	}
}

func TestRequestsForDifferentFieldsRunConcurrently(t *testing.T) {
	manager := newManager()
	release := make(chan struct{})
	suggester := &fakeSuggester{value: "v", release: release}
	r := NewRequester(suggester, manager)

	done := make(chan error, 1)
	go func() {
		_, err := r.Request(context.Background(), draft.FieldTitle)
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for {
		r.mu.Lock()
		pending := r.pending[draft.FieldTitle]
		r.mu.Unlock()
		if pending {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first request never became pending")
		}
		time.Sleep(time.Millisecond)
	}

	// A different field is not blocked by the in-flight title request.
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	if _, err := r.Request(context.Background(), draft.FieldMarket); err != nil {
		t.Fatalf("different-field request should proceed: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("first request failed: %v", err)
	}
}

func TestFailedSuggestionLeavesFieldUntouched(t *testing.T) {
	manager := newManager()
	if _, err := manager.SetField(draft.FieldSolution, "original text"); err != nil {
		t.Fatalf("SetField failed: %v", err)
	}

	suggester := &fakeSuggester{err: errors.New("model unavailable")}
	r := NewRequester(suggester, manager)

	_, err := r.Request(context.Background(), draft.FieldSolution)
	if !errors.Is(err, ErrSuggestionFailed) {
		t.Fatalf("got %v, want ErrSuggestionFailed", err)
	}
	if got := manager.Snapshot().Solution; got != "original text" {
		t.Errorf("failed suggestion overwrote the field: %q", got)
	}

	// A new request for the same field is allowed after the failure.
	suggester.mu.Lock()
	suggester.err = nil
	suggester.value = "better text"
	suggester.mu.Unlock()
	if _, err := r.Request(context.Background(), draft.FieldSolution); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}
