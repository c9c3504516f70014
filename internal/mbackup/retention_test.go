package mbackup_test

import (
	"fmt"
	"testing"
	"time"

	"mbackup-go/internal/mbackup"
)

var baseTime = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// records returns n daily records, record i modified i days before baseTime.
func records(n int) []mbackup.Record {
	rs := make([]mbackup.Record, n)
	for i := range rs {
		at := baseTime.AddDate(0, 0, -i)
		rs[i] = mbackup.Record{
			Kind:    mbackup.Daily,
			Name:    mbackup.NameFor(mbackup.Daily, at).DirectoryName,
			Path:    fmt.Sprintf("/b/%d", i),
			ModTime: at,
		}
	}
	return rs
}

func names(rs []mbackup.Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Path
	}
	return out
}

func TestDecide_Size(t *testing.T) {
	for n := 0; n <= 6; n++ {
		for k := 1; k <= 6; k++ {
			t.Run(fmt.Sprintf("n=%d,k=%d", n, k), func(t *testing.T) {
				d := mbackup.Decide(records(n), k)

				wantRetain := min(n, k)
				if len(d.Retain) != wantRetain {
					t.Errorf("len(Retain) = %d, want %d", len(d.Retain), wantRetain)
				}
				if len(d.Retain)+len(d.Delete) != n {
					t.Errorf("Retain+Delete = %d, want %d", len(d.Retain)+len(d.Delete), n)
				}
				if d.Disabled {
					t.Error("Disabled = true")
				}
			})
		}
	}
}

func TestDecide_KeepsMostRecent(t *testing.T) {
	rs := records(5)
	// Shuffle the listing order; the decision must not depend on it.
	shuffled := []mbackup.Record{rs[3], rs[0], rs[4], rs[2], rs[1]}

	d := mbackup.Decide(shuffled, 3)

	if got, want := fmt.Sprint(names(d.Retain)), fmt.Sprint(names(rs[:3])); got != want {
		t.Errorf("Retain = %s, want %s", got, want)
	}
	if got, want := fmt.Sprint(names(d.Delete)), fmt.Sprint(names(rs[3:])); got != want {
		t.Errorf("Delete = %s, want %s", got, want)
	}
	for _, r := range d.Retain {
		for _, x := range d.Delete {
			if x.ModTime.After(r.ModTime) {
				t.Errorf("deleted %s is newer than retained %s", x.Path, r.Path)
			}
		}
	}
}

func TestDecide_StableTies(t *testing.T) {
	tied := []mbackup.Record{
		{Path: "/b/a", ModTime: baseTime},
		{Path: "/b/b", ModTime: baseTime},
		{Path: "/b/c", ModTime: baseTime},
	}

	for i := 0; i < 10; i++ {
		d := mbackup.Decide(tied, 2)
		if got := fmt.Sprint(names(d.Retain)); got != "[/b/a /b/b]" {
			t.Fatalf("Retain = %s, want input order for ties", got)
		}
		if got := fmt.Sprint(names(d.Delete)); got != "[/b/c]" {
			t.Fatalf("Delete = %s", got)
		}
	}
}

func TestDecide_Disabled(t *testing.T) {
	for _, k := range []int{0, -1, -100} {
		t.Run(fmt.Sprint(k), func(t *testing.T) {
			d := mbackup.Decide(records(4), k)
			if !d.Disabled {
				t.Error("Disabled = false")
			}
			if len(d.Delete) != 0 {
				t.Errorf("Delete = %v, want none", names(d.Delete))
			}
			if len(d.Retain) != 4 {
				t.Errorf("len(Retain) = %d, want 4", len(d.Retain))
			}
			if d.KeepCount != k {
				t.Errorf("KeepCount = %d, want %d", d.KeepCount, k)
			}
		})
	}
}

func TestDecide_DoesNotModifyInput(t *testing.T) {
	rs := records(4)
	in := []mbackup.Record{rs[3], rs[1], rs[0], rs[2]}
	before := fmt.Sprint(names(in))

	mbackup.Decide(in, 2)

	if after := fmt.Sprint(names(in)); after != before {
		t.Errorf("input reordered: %s -> %s", before, after)
	}
}

func TestDecide_Idempotent(t *testing.T) {
	first := mbackup.Decide(records(6), 3)
	second := mbackup.Decide(first.Retain, 3)

	if len(second.Delete) != 0 {
		t.Errorf("second pass deletes %v, want nothing", names(second.Delete))
	}
}
