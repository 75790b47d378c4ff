// Package coordinator orchestrates user commands against the remote store
// and the registry. Every mutation follows the same optimistic shape:
// capture a snapshot, apply locally, call the store, then commit on success
// or roll back to the snapshot on failure. Operations on the same task ID
// are strictly serialized; operations on different IDs may complete in any
// order.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ldi/tend/internal/registry"
	"github.com/ldi/tend/pkg/models"
)

// ErrEmptyTitle rejects add/edit commands before any registry or remote
// interaction.
var ErrEmptyTitle = errors.New("task title must not be empty")

// TaskClient is the store contract the coordinator drives. Satisfied by
// *remote.Client and by test fakes.
type TaskClient interface {
	List(ctx context.Context) ([]models.Task, error)
	Create(ctx context.Context, title, description string) (*models.Task, error)
	Replace(ctx context.Context, id string, fields models.TaskFields) (*models.Task, error)
	Remove(ctx context.Context, id string) error
}

type Coordinator struct {
	client TaskClient
	reg    *registry.Registry

	sinkMu sync.RWMutex
	sink   Sink

	// locks serializes operations per task ID. A second operation on the
	// same ID waits for the first's full remote round trip and
	// reconciliation, so a late rollback can never clobber newer state.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// inflight counts remote calls in progress. The busy signal is counted,
	// not boolean, so it cannot flicker off while any call is still out.
	busyMu   sync.Mutex
	inflight int

	now func() time.Time
}

func New(client TaskClient, reg *registry.Registry) *Coordinator {
	return &Coordinator{
		client: client,
		reg:    reg,
		sink:   NopSink{},
		locks:  make(map[string]*sync.Mutex),
		now:    time.Now,
	}
}

// SetSink routes outcome events to the given sink. Safe to call after
// construction, before the UI starts issuing commands.
func (c *Coordinator) SetSink(s Sink) {
	c.sinkMu.Lock()
	defer c.sinkMu.Unlock()
	if s == nil {
		s = NopSink{}
	}
	c.sink = s
}

// Tasks returns the current registry snapshot for rendering. Pair it with
// filter.Visible and filter.Counts on the same slice.
func (c *Coordinator) Tasks() []models.Task {
	return c.reg.All()
}

// Load replaces the registry with the store's current collection. On
// failure the registry is left empty and the app stays usable for a manual
// retry; there is no automatic retry loop.
func (c *Coordinator) Load(ctx context.Context) error {
	c.beginRemote()
	tasks, err := c.client.List(ctx)
	c.endRemote()
	if err != nil {
		c.reg.ReplaceAll(nil)
		c.notify(KindError, "failed to load tasks: %v", err)
		return err
	}
	c.reg.ReplaceAll(tasks)
	return nil
}

// Add creates a task optimistically. The pending entry appears immediately
// under a temporary ID and is rekeyed in place once the store confirms.
func (c *Coordinator) Add(ctx context.Context, title, description string) (models.Task, error) {
	title = trimTitle(title)
	if title == "" {
		c.notify(KindInfo, "a task needs a title")
		return models.Task{}, ErrEmptyTitle
	}

	tempID := c.reg.InsertPending(models.Task{
		Title:       title,
		Description: description,
		CreatedAt:   c.now(),
	})

	c.beginRemote()
	created, err := c.client.Create(ctx, title, description)
	c.endRemote()
	if err != nil {
		c.reg.DiscardPending(tempID)
		c.notify(KindError, "failed to add %q: %v", title, err)
		return models.Task{}, err
	}

	c.reg.ConfirmCreate(tempID, *created)
	c.notify(KindSuccess, "added %q", created.Title)
	final, ok := c.reg.Snapshot(created.ID)
	if !ok {
		// Confirmed entry was removed concurrently; report what the store
		// returned.
		final = created.Clone()
	}
	return final, nil
}

// Toggle flips the task's completed flag, stamping or clearing CompletedAt
// from the client clock.
func (c *Coordinator) Toggle(ctx context.Context, id string) error {
	return c.replaceOptimistic(ctx, id, func(t *models.Task) {
		t.Completed = !t.Completed
		if t.Completed {
			at := c.now()
			t.CompletedAt = &at
		} else {
			t.CompletedAt = nil
		}
	})
}

// Edit replaces the task's title.
func (c *Coordinator) Edit(ctx context.Context, id, newTitle string) error {
	newTitle = trimTitle(newTitle)
	if newTitle == "" {
		c.notify(KindInfo, "a task needs a title")
		return ErrEmptyTitle
	}
	return c.replaceOptimistic(ctx, id, func(t *models.Task) {
		t.Title = newTitle
	})
}

// replaceOptimistic is the one rollback code path shared by every in-place
// mutation: snapshot, patch, push the full field set, and on failure restore
// the snapshot verbatim.
func (c *Coordinator) replaceOptimistic(ctx context.Context, id string, patch func(*models.Task)) error {
	mu := c.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	prior, err := c.reg.Mutate(id, patch)
	if err != nil {
		log.Printf("coordinator: mutate %s: %v", id, err)
		return err
	}
	updated, ok := c.reg.Snapshot(id)
	if !ok {
		return fmt.Errorf("%w: %s", registry.ErrNotFound, id)
	}

	c.beginRemote()
	_, err = c.client.Replace(ctx, id, updated.Fields())
	c.endRemote()
	if err != nil {
		if rbErr := c.reg.Rollback(id, prior); rbErr != nil {
			log.Printf("coordinator: rollback %s: %v", id, rbErr)
		}
		c.notify(KindError, "failed to update %q: %v", updated.Title, err)
		return err
	}

	c.notify(KindSuccess, "updated %q", updated.Title)
	return nil
}

// Delete removes the task optimistically. On store failure the task becomes
// visible again; a retry of the same command issues exactly one new removal.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	title, err := c.deleteOne(ctx, id)
	if err != nil {
		if !errors.Is(err, registry.ErrNotFound) {
			c.notify(KindError, "failed to delete %q: %v", title, err)
		}
		return err
	}
	c.notify(KindSuccess, "deleted %q", title)
	return nil
}

// ClearCompleted deletes every completed task as independent per-ID
// operations. Callers gate it behind a confirmation showing the affected
// count; zero completed tasks short-circuits with no remote calls.
func (c *Coordinator) ClearCompleted(ctx context.Context) error {
	return c.clear(ctx, func(t models.Task) bool { return t.Completed })
}

// ClearAll deletes every task. Same gating and partial-failure policy as
// ClearCompleted.
func (c *Coordinator) ClearAll(ctx context.Context) error {
	return c.clear(ctx, func(models.Task) bool { return true })
}

// clear fans out independent deletes for every synced task matching the
// predicate. Failures accumulate: a failed delete blocks nothing, succeeded
// deletes stay deleted, and the outcome is reported once in aggregate.
// Failed tasks remain synced and visibly in the list.
func (c *Coordinator) clear(ctx context.Context, match func(models.Task) bool) error {
	var targets []string
	for _, t := range c.reg.All() {
		if t.SyncState == models.SyncStateSynced && match(t) {
			targets = append(targets, t.ID)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, id := range targets {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := c.deleteOne(ctx, id); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	if failed > 0 {
		c.notify(KindError, "cleared %d of %d tasks, %d failed", len(targets)-failed, len(targets), failed)
		return fmt.Errorf("%d of %d deletes failed", failed, len(targets))
	}
	c.notify(KindSuccess, "cleared %d tasks", len(targets))
	return nil
}

// deleteOne runs the three-step delete lifecycle for a single ID under its
// lock and returns the task title for reporting.
func (c *Coordinator) deleteOne(ctx context.Context, id string) (string, error) {
	mu := c.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	snap, ok := c.reg.Snapshot(id)
	if !ok {
		log.Printf("coordinator: delete unknown id %s", id)
		return "", fmt.Errorf("%w: %s", registry.ErrNotFound, id)
	}
	if err := c.reg.MarkPendingDelete(id); err != nil {
		return snap.Title, err
	}

	c.beginRemote()
	err := c.client.Remove(ctx, id)
	c.endRemote()
	if err != nil {
		if cancelErr := c.reg.CancelPendingDelete(id); cancelErr != nil {
			log.Printf("coordinator: cancel pending delete %s: %v", id, cancelErr)
		}
		return snap.Title, err
	}

	c.reg.ConfirmDelete(id)
	return snap.Title, nil
}

func (c *Coordinator) lockFor(id string) *sync.Mutex {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()

	mu, ok := c.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		c.locks[id] = mu
	}
	return mu
}

func (c *Coordinator) beginRemote() {
	c.busyMu.Lock()
	c.inflight++
	n := c.inflight
	c.busyMu.Unlock()
	c.currentSink().BusyChanged(n)
}

func (c *Coordinator) endRemote() {
	c.busyMu.Lock()
	c.inflight--
	n := c.inflight
	c.busyMu.Unlock()
	c.currentSink().BusyChanged(n)
}

func (c *Coordinator) notify(kind NotificationKind, format string, args ...any) {
	c.currentSink().Notify(Notification{Kind: kind, Text: fmt.Sprintf(format, args...)})
}

func (c *Coordinator) currentSink() Sink {
	c.sinkMu.RLock()
	defer c.sinkMu.RUnlock()
	return c.sink
}

func trimTitle(s string) string {
	return strings.TrimSpace(s)
}
