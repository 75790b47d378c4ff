// Package registry holds the in-memory mirror of the remote task
// collection. It is the single source of truth for what the view renders:
// writers go through the narrow mutation contract below, readers only ever
// receive copies. Ordering is insertion order and stable across reads.
package registry

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/ldi/tend/pkg/models"
)

// ErrNotFound signals an operation addressed an ID the registry no longer
// knows. Outside the explicitly tolerant confirms this is a stale-reference
// programming error, not a recoverable condition.
var ErrNotFound = errors.New("task not found in registry")

// tempIDPrefix keeps locally generated IDs disjoint from store-assigned
// ones. The dev store hands out bare UUIDs, so the prefix can never collide.
const tempIDPrefix = "tmp-"

// IsTempID reports whether id was generated locally for a pending create.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

type Registry struct {
	mu    sync.RWMutex
	order []string
	tasks map[string]*models.Task
}

func New() *Registry {
	return &Registry{
		tasks: make(map[string]*models.Task),
	}
}

// ReplaceAll discards the current contents and installs tasks as the synced
// snapshot. Used after a full list from the store.
func (r *Registry) ReplaceAll(tasks []models.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = r.order[:0]
	r.tasks = make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		c := t.Clone()
		c.SyncState = models.SyncStateSynced
		r.order = append(r.order, c.ID)
		r.tasks[c.ID] = &c
	}
}

// InsertPending appends a pending-create entry and returns its temporary ID.
func (r *Registry) InsertPending(task models.Task) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := task.Clone()
	c.ID = tempIDPrefix + uuid.NewString()
	c.SyncState = models.SyncStatePendingCreate
	r.order = append(r.order, c.ID)
	r.tasks[c.ID] = &c
	return c.ID
}

// ConfirmCreate rekeys the pending entry to the store-assigned identity and
// marks it synced. The entry keeps its list position: this is a rekey of the
// same entity, not a new one. A missing tempID is tolerated because the
// create may have been rolled back while the confirmation was in flight.
func (r *Registry) ConfirmCreate(tempID string, confirmed models.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[tempID]; !ok {
		log.Printf("registry: confirm create for unknown temp id %s, ignoring", tempID)
		return
	}

	c := confirmed.Clone()
	c.SyncState = models.SyncStateSynced
	delete(r.tasks, tempID)
	r.tasks[c.ID] = &c
	for i, id := range r.order {
		if id == tempID {
			r.order[i] = c.ID
			break
		}
	}
}

// DiscardPending removes a pending-create entry after a failed create.
func (r *Registry) DiscardPending(tempID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(tempID)
}

// Snapshot returns a copy of the task for rollback capture or rendering.
func (r *Registry) Snapshot(id string) (models.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return t.Clone(), true
}

// Mutate applies patch to the task in place and returns the pre-mutation
// snapshot for rollback.
func (r *Registry) Mutate(id string, patch func(*models.Task)) (models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	prior := t.Clone()
	patch(t)
	return prior, nil
}

// Rollback restores a previously captured snapshot verbatim.
func (r *Registry) Rollback(id string, prior models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c := prior.Clone()
	r.tasks[id] = &c
	return nil
}

// MarkPendingDelete hides the task pending store confirmation of a delete.
func (r *Registry) MarkPendingDelete(id string) error {
	return r.setState(id, models.SyncStatePendingDelete)
}

// CancelPendingDelete restores a task whose delete the store rejected.
func (r *Registry) CancelPendingDelete(id string) error {
	return r.setState(id, models.SyncStateSynced)
}

// ConfirmDelete purges the task. A missing ID is tolerated because the
// delete may have been concurrently rolled back.
func (r *Registry) ConfirmDelete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		log.Printf("registry: confirm delete for unknown id %s, ignoring", id)
		return
	}
	r.remove(id)
}

// All returns a copy of every task, including pending-delete entries, in
// insertion order.
func (r *Registry) All() []models.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Task, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tasks[id].Clone())
	}
	return out
}

// Len returns the number of tasks, pending-delete entries included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) setState(id string, state models.SyncState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	t.SyncState = state
	return nil
}

// remove drops id from both the map and the order slice. Callers hold mu.
func (r *Registry) remove(id string) {
	if _, ok := r.tasks[id]; !ok {
		return
	}
	delete(r.tasks, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
