package mbackup

import "io"

// FileInfo describes a regular file directly inside a backup directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Catalog provides the filesystem operations the orchestrators need.
// It abstracts disk access so the decision logic can be tested in isolation.
type Catalog interface {
	// Scan lists the immediate entries of baseDir. A missing baseDir yields
	// an empty listing; any other failure is returned.
	Scan(baseDir string) ([]DirEntry, error)

	// EnsureDir creates dir and its parents if absent.
	EnsureDir(dir string) error

	// Replace leaves dir present and empty. Existing content is removed
	// wholesale, never overwritten file by file. It reports whether
	// something was replaced. A concurrent creator is not an error.
	Replace(dir string) (bool, error)

	// Remove deletes dir recursively. A dir that is already gone is not an error.
	Remove(dir string) error

	// Rename moves oldpath to newpath, replacing newpath atomically.
	Rename(oldpath, newpath string) error

	// Exists reports whether path exists.
	Exists(path string) (bool, error)

	// Create creates or truncates a file for writing.
	Create(path string) (io.WriteCloser, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// OpenDump opens an SQL file, transparently decompressing ".gz" files.
	OpenDump(path string) (io.ReadCloser, error)

	// Files lists the regular files directly inside dir, sorted by name.
	Files(dir string) ([]FileInfo, error)

	// Compress gzips path into path+".gz", removes the original and
	// returns the new path.
	Compress(path string) (string, error)
}
