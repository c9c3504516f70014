package mbackup

import (
	"sort"
)

// Decision is the outcome of a retention pass over one kind's backups.
type Decision struct {
	KeepCount int
	// Disabled is set when KeepCount <= 0; nothing is deleted.
	Disabled bool
	Retain   []Record
	Delete   []Record
}

// Decide selects which records must be deleted so that only the keep most
// recently modified ones remain. Records with equal modification times keep
// their input order, so repeated runs over an unchanged listing agree.
// The input slice is not modified.
func Decide(records []Record, keep int) Decision {
	if keep <= 0 {
		return Decision{
			KeepCount: keep,
			Disabled:  true,
			Retain:    append([]Record(nil), records...),
		}
	}

	sorted := append([]Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ModTime.After(sorted[j].ModTime)
	})

	if len(sorted) <= keep {
		return Decision{KeepCount: keep, Retain: sorted}
	}
	return Decision{
		KeepCount: keep,
		Retain:    sorted[:keep],
		Delete:    sorted[keep:],
	}
}
