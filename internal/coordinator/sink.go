package coordinator

import (
	"fmt"
	"io"
)

type NotificationKind string

const (
	KindInfo    NotificationKind = "info"
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
)

// Notification is a command-outcome event for the render layer.
type Notification struct {
	Kind NotificationKind
	Text string
}

// Sink receives outcome events and busy transitions from the coordinator.
// Implementations route them to a UI and hold no logic of their own.
// BusyChanged carries the number of in-flight remote calls; it only reads
// zero once every call has resolved.
type Sink interface {
	Notify(n Notification)
	BusyChanged(inflight int)
}

// NopSink discards everything. Useful for tests and headless surfaces.
type NopSink struct{}

func (NopSink) Notify(Notification) {}
func (NopSink) BusyChanged(int)     {}

// WriterSink prints notifications to w, one per line. Used by the one-shot
// CLI commands with stderr.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Notify(n Notification) {
	fmt.Fprintf(s.W, "%s: %s\n", n.Kind, n.Text)
}

func (s WriterSink) BusyChanged(int) {}
