// Package filter derives the visible subset and aggregate counts from a
// registry snapshot. Both functions are pure: same snapshot in, same result
// out, no side effects. Callers must compute the visible list and the
// counts from the identical snapshot so the two can never disagree.
package filter

import (
	"time"

	"github.com/ldi/tend/pkg/models"
)

// Summary holds the aggregate counts for a snapshot.
// Total == Active + Completed always holds.
type Summary struct {
	Total     int
	Active    int
	Completed int
}

// Visible returns the subset of tasks matching f, order preserved.
// Pending-delete tasks are optimistically gone and never visible.
func Visible(tasks []models.Task, f models.Filter) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.SyncState == models.SyncStatePendingDelete {
			continue
		}
		switch f {
		case models.FilterActive:
			if t.Completed {
				continue
			}
		case models.FilterCompleted:
			if !t.Completed {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// Counts computes the aggregates from the same snapshot used for rendering.
func Counts(tasks []models.Task) Summary {
	var s Summary
	for _, t := range tasks {
		if t.SyncState == models.SyncStatePendingDelete {
			continue
		}
		s.Total++
		if t.Completed {
			s.Completed++
		} else {
			s.Active++
		}
	}
	return s
}

// CompletionTime returns when a completed task was finished. The store does
// not persist completion times, so a task observed completed without one
// (typical after a reload) falls back to its creation time. That is a known
// approximation, kept deliberately.
func CompletionTime(t models.Task) time.Time {
	if t.CompletedAt != nil {
		return *t.CompletedAt
	}
	return t.CreatedAt
}
