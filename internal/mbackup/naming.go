package mbackup

import "time"

const dirPrefix = "backup_"

// bucketLayouts maps each kind to the time layout of its bucket label.
// Two backups whose timestamps format to the same label share a directory.
var bucketLayouts = map[Kind]string{
	Hourly:  "20060102_15",
	Daily:   "20060102",
	Monthly: "200601",
	Manual:  "20060102_150405",
}

// Identity is the deterministic location of a backup derived from its kind
// and creation time.
type Identity struct {
	Kind          Kind
	Bucket        string
	DirectoryName string
}

// NameFor computes the identity of a backup of the given kind taken at now.
// It has no side effects; replacing an existing directory with the same name
// is the caller's job.
func NameFor(kind Kind, now time.Time) Identity {
	layout, ok := bucketLayouts[kind]
	if !ok {
		layout = bucketLayouts[Manual]
	}
	bucket := now.Format(layout)
	return Identity{
		Kind:          kind,
		Bucket:        bucket,
		DirectoryName: kind.dirPrefix() + bucket,
	}
}
