package mbackup

import (
	"fmt"
	"sort"
)

// Listing is the set of completed backups found across base directories.
type Listing struct {
	// Backups are sorted newest first.
	Backups []Record
	// Legacy holds completed backups whose names carry no kind.
	Legacy []Record
}

// List discovers the completed backups of the given kinds. Kinds whose
// base directory is not configured or does not exist contribute nothing.
func (s *Service) List(kinds []Kind) (*Listing, error) {
	listing := &Listing{}
	seenLegacy := make(map[string]bool)

	for _, kind := range kinds {
		baseDir, err := s.layout.BaseDir(kind)
		if err != nil {
			s.logger.Debug("skipping kind without base directory", "kind", kind.String())
			continue
		}

		entries, err := s.catalog.Scan(baseDir)
		if err != nil {
			return nil, fmt.Errorf("listing %s backups in %s: %w", kind, baseDir, err)
		}

		records, legacy := Discover(entries, kind)
		listing.Backups = append(listing.Backups, records...)
		for _, r := range legacy {
			if seenLegacy[r.Path] {
				continue
			}
			seenLegacy[r.Path] = true
			s.logger.Warn("unclassified legacy backup directory", "path", r.Path)
			listing.Legacy = append(listing.Legacy, r)
		}
	}

	sortNewestFirst(listing.Backups)
	sortNewestFirst(listing.Legacy)
	return listing, nil
}

func sortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ModTime.After(records[j].ModTime)
	})
}
