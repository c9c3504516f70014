package app

import (
	"time"

	"mbackup-go/internal/mbackup"
)

// Operation tracks one CLI invocation so it can be written to the run
// history when it finishes.
type Operation struct {
	ID        string
	Name      string
	Kind      string
	StartedAt time.Time
}

// NewOperation creates an operation started at now. The ID sorts by start
// time and stays unique across hosts sharing a log directory.
func NewOperation(name string, now time.Time, ids mbackup.IDGenerator) *Operation {
	return &Operation{
		ID:        now.UTC().Format("20060102T150405Z") + "-" + ids.New(),
		Name:      name,
		StartedAt: now,
	}
}

// Finish builds the history record for the operation. A nil err marks
// the run successful.
func (op *Operation) Finish(directory string, err error, finishedAt time.Time) *mbackup.Run {
	run := &mbackup.Run{
		ID:         op.ID,
		Operation:  op.Name,
		Kind:       op.Kind,
		Directory:  directory,
		Status:     mbackup.StatusSuccess,
		StartedAt:  op.StartedAt,
		FinishedAt: finishedAt,
	}
	if err != nil {
		run.Status = mbackup.StatusError
		run.Message = err.Error()
	}
	return run
}
