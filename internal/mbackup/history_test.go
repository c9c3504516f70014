package mbackup_test

import (
	"testing"
	"time"

	"mbackup-go/internal/mbackup"
	"mbackup-go/internal/testutil"
)

func TestGetHistory(t *testing.T) {
	t.Run("no history configured", func(t *testing.T) {
		f := newFixture(t)

		runs, err := f.svc.GetHistory(10)
		if err != nil {
			t.Fatalf("GetHistory() error = %v", err)
		}
		if runs != nil {
			t.Errorf("GetHistory() = %v, want nil", runs)
		}
	})

	t.Run("returns newest first", func(t *testing.T) {
		f := newFixture(t)
		h := testutil.NewTestHistory(t)
		svc := mbackup.NewService(f.server, f.catalog, nil, nil, h, mbackup.NewNopLogger(), f.clock, f.layout)

		start := f.clock.Now()
		for i, op := range []string{"backup", "rotate", "restore"} {
			at := start.Add(time.Duration(i) * time.Minute)
			run := &mbackup.Run{
				ID:         op,
				Operation:  op,
				Kind:       "daily",
				Status:     mbackup.StatusSuccess,
				StartedAt:  at,
				FinishedAt: at.Add(time.Second),
			}
			if err := h.RecordRun(run); err != nil {
				t.Fatalf("RecordRun() error = %v", err)
			}
		}

		runs, err := svc.GetHistory(2)
		if err != nil {
			t.Fatalf("GetHistory() error = %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("len(runs) = %d, want 2", len(runs))
		}
		if runs[0].Operation != "restore" || runs[1].Operation != "rotate" {
			t.Errorf("runs = %s, %s; want restore, rotate", runs[0].Operation, runs[1].Operation)
		}
	})
}
