package mbackup

import (
	"strings"
	"time"
)

// ManifestName is the sentinel file whose presence marks a backup directory
// as complete.
const ManifestName = "MANIFEST.txt"

// DirEntry is one entry of a base directory listing as seen by a Catalog.
type DirEntry struct {
	Name        string
	Path        string
	IsDir       bool
	ModTime     time.Time
	Size        int64 // sum of immediate regular file sizes
	HasManifest bool
}

// Record is a completed backup discovered on disk.
// For Legacy records, Kind is the kind whose base directory held the entry;
// the name itself carries no kind.
type Record struct {
	Kind    Kind
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
	Legacy  bool
}

// ClassKind tags the variant held by a Classification.
type ClassKind int

const (
	// Foreign names are not backups at all.
	Foreign ClassKind = iota
	// Recognized names carry a known kind prefix.
	Recognized
	// Legacy names start with the backup prefix but carry no known kind.
	Legacy
)

// Classification is the result of classifying a directory name.
// Kind is only meaningful when Class is Recognized.
type Classification struct {
	Class ClassKind
	Kind  Kind
}

// Classify inspects a directory name and reports what it is.
func Classify(name string) Classification {
	if !strings.HasPrefix(name, dirPrefix) {
		return Classification{Class: Foreign}
	}
	for _, k := range Kinds() {
		if strings.HasPrefix(name, k.dirPrefix()) {
			return Classification{Class: Recognized, Kind: k}
		}
	}
	return Classification{Class: Legacy}
}

// Discover filters a directory listing down to the completed backups of kind.
// Entries must be directories holding a manifest. Legacy-named completed
// backups are returned separately and are never attributed a kind.
// The returned records keep the listing order.
func Discover(entries []DirEntry, kind Kind) (records []Record, legacy []Record) {
	for _, e := range entries {
		if !e.IsDir || !e.HasManifest {
			continue
		}
		c := Classify(e.Name)
		switch {
		case c.Class == Recognized && c.Kind == kind:
			records = append(records, recordFromEntry(kind, e))
		case c.Class == Legacy:
			r := recordFromEntry(kind, e)
			r.Legacy = true
			legacy = append(legacy, r)
		}
	}
	return records, legacy
}

func recordFromEntry(kind Kind, e DirEntry) Record {
	return Record{
		Kind:    kind,
		Name:    e.Name,
		Path:    e.Path,
		ModTime: e.ModTime,
		Size:    e.Size,
	}
}
