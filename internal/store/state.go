package store

import (
	"sync"

	"github.com/Jamen1147/socialApp/internal/domain"
)

// Tracker holds the ephemeral per-operation UI state: whether a bulk fetch or
// a mutation is in flight, which row is being deleted, and which activity is
// currently open for detail or edit. Flags follow a strict in-flight cycle:
// set immediately before the remote call, reset after it resolves on both the
// success and the failure path.
type Tracker struct {
	mu             sync.RWMutex
	loadingInitial bool
	submitting     bool
	target         string
	selected       *domain.Activity
}

// LoadingInitial reports whether a bulk list or detail fetch is in flight.
func (t *Tracker) LoadingInitial() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loadingInitial
}

// Submitting reports whether a create/edit/delete/attendance mutation is in flight.
func (t *Tracker) Submitting() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.submitting
}

// Target returns the id of the row currently being deleted, or empty.
func (t *Tracker) Target() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.target
}

// Selected returns a copy of the activity currently open for detail/edit.
func (t *Tracker) Selected() (domain.Activity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.selected == nil {
		return domain.Activity{}, false
	}
	return *t.selected, true
}

func (t *Tracker) setLoadingInitial(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadingInitial = v
}

func (t *Tracker) setSubmitting(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.submitting = v
}

func (t *Tracker) setTarget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.target = id
}

func (t *Tracker) setSelected(activity *domain.Activity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if activity == nil {
		t.selected = nil
		return
	}
	copied := *activity
	t.selected = &copied
}
