package models

import (
	"fmt"
	"time"
)

// SyncState tracks where a task sits in the optimistic-update lifecycle.
type SyncState string

const (
	// SyncStateSynced means the remote store has confirmed the task as-is.
	SyncStateSynced SyncState = "synced"
	// SyncStatePendingCreate means the task exists locally under a temporary
	// ID and is awaiting store confirmation.
	SyncStatePendingCreate SyncState = "pending_create"
	// SyncStatePendingDelete means a delete has been applied locally and is
	// awaiting store confirmation.
	SyncStatePendingDelete SyncState = "pending_delete"
)

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`

	// CompletedAt is set from the client clock when Completed flips to true
	// and cleared when it flips back. The store does not persist it, so a
	// reload loses the real completion time; views fall back to CreatedAt.
	CompletedAt *time.Time `json:"-"`

	// SyncState is client-side bookkeeping, never sent over the wire.
	SyncState SyncState `json:"-"`
}

// TaskFields is the mutable field set sent on replace.
type TaskFields struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Fields extracts the replace payload from a task.
func (t Task) Fields() TaskFields {
	return TaskFields{
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
	}
}

// Clone returns a deep copy, safe to hand to readers.
func (t Task) Clone() Task {
	c := t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return c
}

// Filter selects which subset of the task list is visible.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// ParseFilter validates a filter name from a flag or tool argument.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case FilterAll, FilterActive, FilterCompleted:
		return Filter(s), nil
	}
	return "", fmt.Errorf("unknown filter %q (expected all, active or completed)", s)
}
