package mbackup

import (
	"context"
	"time"
)

// Event reports the outcome of a backup run to external listeners.
type Event struct {
	Success   bool
	Kind      Kind
	Directory string
	Message   string
	// SizeBytes is the total size of the backup directory, or -1 when unknown.
	SizeBytes int64
	Time      time.Time
}

// Notifier delivers backup outcome events. Delivery failures are reported
// to the caller, which treats them as warnings.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }
