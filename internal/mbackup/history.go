package mbackup

import (
	"fmt"
	"time"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Run is one recorded invocation of an operation (backup, rotate, restore).
type Run struct {
	ID         string
	Operation  string
	Kind       string
	Directory  string
	Status     string
	Message    string
	Deleted    int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// History persists runs so operators can audit what the scheduler did.
type History interface {
	RecordRun(run *Run) error
	RecentRuns(limit int) ([]*Run, error)
	Close() error
}

// GetHistory returns the most recent runs, newest first.
func (s *Service) GetHistory(limit int) ([]*Run, error) {
	if s.history == nil {
		return nil, nil
	}
	runs, err := s.history.RecentRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("reading run history: %w", err)
	}
	return runs, nil
}
