package testutil

import (
	"context"
	"sync"

	"mbackup-go/internal/mbackup"
)

// RecordingNotifier keeps every event it is given.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []mbackup.Event
	// Err is returned from Notify after recording the event.
	Err error
}

func (n *RecordingNotifier) Notify(_ context.Context, e mbackup.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.Err
}

// Events returns a copy of the recorded events.
func (n *RecordingNotifier) Events() []mbackup.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]mbackup.Event(nil), n.events...)
}

// Compile-time check that RecordingNotifier implements mbackup.Notifier interface
var _ mbackup.Notifier = (*RecordingNotifier)(nil)
