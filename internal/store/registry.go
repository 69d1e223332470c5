// Package store implements the client-side activity cache: a keyed registry
// of activity records kept consistent with the remote API, derived views over
// it, and the coordinator that applies mutations confirm-then-apply.
package store

import (
	"iter"
	"sync"

	"github.com/Jamen1147/socialApp/internal/domain"
)

// Registry is the authoritative in-memory keyed cache of activities for the
// current session. Writes are whole-entity upserts or removes; a key that is
// present always refers to the most recently confirmed server state.
type Registry struct {
	mu         sync.RWMutex
	activities map[string]domain.Activity
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{activities: make(map[string]domain.Activity)}
}

// Upsert inserts or fully replaces the entry keyed by activity.ID.
// An empty ID is a programming error.
func (r *Registry) Upsert(activity domain.Activity) {
	if activity.ID == "" {
		panic("store: upsert with empty activity id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities[activity.ID] = activity
}

// Get returns the entry for id and whether it exists.
func (r *Registry) Get(id string) (domain.Activity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	activity, ok := r.activities[id]
	return activity, ok
}

// Remove deletes the entry for id. Removing an absent id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.activities, id)
}

// Len returns the number of cached activities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.activities)
}

// Values returns a restartable sequence over the current entries in
// unspecified order. Each restart observes the registry state at that moment.
func (r *Registry) Values() iter.Seq[domain.Activity] {
	return func(yield func(domain.Activity) bool) {
		r.mu.RLock()
		snapshot := make([]domain.Activity, 0, len(r.activities))
		for _, activity := range r.activities {
			snapshot = append(snapshot, activity)
		}
		r.mu.RUnlock()

		for _, activity := range snapshot {
			if !yield(activity) {
				return
			}
		}
	}
}
