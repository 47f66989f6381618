package draft

import (
	"context"
	"log"
	"sync"
	"time"
)

// SaveStatus is the UI-visible autosave state.
type SaveStatus string

const (
	StatusIdle   SaveStatus = "idle"
	StatusSaving SaveStatus = "saving"
	StatusSaved  SaveStatus = "saved"
)

// Saver persists a draft snapshot and returns the stored record.
type Saver interface {
	SaveDraft(ctx context.Context, ideaID string, fields Fields) (Saved, error)
}

// Options tune the sync engine windows. Zero values take the defaults.
type Options struct {
	Debounce    time.Duration // quiet window after the last edit
	SavedHold   time.Duration // how long "saved" is displayed before idle
	SaveTimeout time.Duration // per-request save deadline
}

const (
	defaultDebounce    = 500 * time.Millisecond
	defaultSavedHold   = 2 * time.Second
	defaultSaveTimeout = 10 * time.Second
)

// Manager is the single-writer draft store plus its debounced sync engine.
// All mutations go through the mutex; autosave and validation callers take
// value snapshots rather than holding references.
type Manager struct {
	ideaID      string
	saver       Saver
	debounce    time.Duration
	savedHold   time.Duration
	saveTimeout time.Duration

	mu       sync.Mutex
	fields   Fields
	server   *Saved
	status   SaveStatus
	timer    *time.Timer
	inflight bool
	queued   bool
	gen      uint64 // bumped on Hydrate/Reset so stale save results are discarded
}

func NewManager(ideaID string, saver Saver, opts Options) *Manager {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.SavedHold <= 0 {
		opts.SavedHold = defaultSavedHold
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = defaultSaveTimeout
	}
	return &Manager{
		ideaID:      ideaID,
		saver:       saver,
		debounce:    opts.Debounce,
		savedHold:   opts.SavedHold,
		saveTimeout: opts.SaveTimeout,
		status:      StatusIdle,
	}
}

// SetField replaces one field and schedules a debounced autosave. The
// returned snapshot is the new draft value.
func (m *Manager) SetField(name, value string) (Fields, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.fields.With(name, value)
	if err != nil {
		return m.fields, err
	}
	m.fields = next
	m.scheduleLocked()
	return m.fields, nil
}

// Snapshot returns the current draft value.
func (m *Manager) Snapshot() Fields {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fields
}

// Server returns a copy of the last server-persisted record, or nil if the
// draft was never saved or fetched.
func (m *Manager) Server() *Saved {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.server == nil {
		return nil
	}
	snapshot := *m.server
	return &snapshot
}

// Status returns the current save status.
func (m *Manager) Status() SaveStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Hydrate replaces the draft and its baseline wholesale from a fetched
// record. Any pending debounce is dropped and an in-flight save result is
// discarded when it lands.
func (m *Manager) Hydrate(record Saved) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelTimerLocked()
	m.queued = false
	m.gen++
	m.fields = record.Fields
	m.server = &record
	m.status = StatusIdle
}

// Reset clears every field and the server baseline. Used after the draft is
// deleted server-side.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelTimerLocked()
	m.queued = false
	m.gen++
	m.fields = Fields{}
	m.server = nil
	m.status = StatusIdle
}

// SaveNow cancels any pending debounce and dispatches an immediate save,
// reusing the single in-flight guarantee. Used for an explicit save or
// before navigating away.
func (m *Manager) SaveNow() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelTimerLocked()
	if m.inflight {
		m.queued = true
		return
	}
	m.startSaveLocked()
}

func (m *Manager) scheduleLocked() {
	if m.timer != nil {
		m.timer.Reset(m.debounce)
		return
	}
	m.timer = time.AfterFunc(m.debounce, m.flush)
}

func (m *Manager) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// flush runs when the debounce window elapses with no further edits.
func (m *Manager) flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timer = nil
	if m.inflight {
		// A save is already running; remember that newer edits exist and
		// issue exactly one follow-up once it resolves.
		m.queued = true
		return
	}
	m.startSaveLocked()
}

func (m *Manager) startSaveLocked() {
	m.inflight = true
	m.status = StatusSaving
	snapshot := m.fields // always the latest value, not the one at debounce start
	gen := m.gen
	go m.runSave(snapshot, gen)
}

func (m *Manager) runSave(snapshot Fields, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), m.saveTimeout)
	defer cancel()

	saved, err := m.saver.SaveDraft(ctx, m.ideaID, snapshot)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight = false

	stale := gen != m.gen
	switch {
	case stale:
		// The draft was hydrated or reset while this save was in flight;
		// its result no longer matters.
	case err != nil:
		// Autosave failures are silent; the next edit retries naturally.
		log.Printf("draft: autosave %s failed: %v", m.ideaID, err)
		m.status = StatusIdle
	default:
		m.server = &saved
		m.status = StatusSaved
		holdGen := m.gen
		time.AfterFunc(m.savedHold, func() { m.relax(holdGen) })
	}

	if m.queued && !stale {
		m.queued = false
		m.startSaveLocked()
	} else if stale {
		m.queued = false
	}
}

// relax drops "saved" back to "idle" after the display window, unless a new
// save started in the meantime.
func (m *Manager) relax(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen == m.gen && m.status == StatusSaved && !m.inflight {
		m.status = StatusIdle
	}
}
