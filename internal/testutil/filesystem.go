package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mbackup-go/internal/fs"
	"mbackup-go/internal/mbackup"
)

// FaultyCatalog wraps the real filesystem catalog and injects failures.
type FaultyCatalog struct {
	*fs.OSCatalog

	// ScanErr, when set, is returned by every Scan.
	ScanErr error
	// RemoveErrs maps paths to the error Remove returns for them.
	RemoveErrs map[string]error
	// CompressErr, when set, is returned by every Compress.
	CompressErr error
	// RenameErrs maps destination paths to the error Rename returns for them.
	RenameErrs map[string]error
}

// NewFaultyCatalog returns a catalog that behaves like the real one until
// a failure is configured.
func NewFaultyCatalog() *FaultyCatalog {
	return &FaultyCatalog{
		OSCatalog:  fs.NewOSCatalog(NewStubIDGenerator()),
		RemoveErrs: make(map[string]error),
		RenameErrs: make(map[string]error),
	}
}

func (c *FaultyCatalog) Scan(baseDir string) ([]mbackup.DirEntry, error) {
	if c.ScanErr != nil {
		return nil, c.ScanErr
	}
	return c.OSCatalog.Scan(baseDir)
}

func (c *FaultyCatalog) Remove(dir string) error {
	if err, ok := c.RemoveErrs[dir]; ok {
		return err
	}
	return c.OSCatalog.Remove(dir)
}

func (c *FaultyCatalog) Rename(oldpath, newpath string) error {
	if err, ok := c.RenameErrs[newpath]; ok {
		return err
	}
	return c.OSCatalog.Rename(oldpath, newpath)
}

func (c *FaultyCatalog) Compress(path string) (string, error) {
	if c.CompressErr != nil {
		return "", c.CompressErr
	}
	return c.OSCatalog.Compress(path)
}

// Compile-time check that FaultyCatalog implements mbackup.Catalog interface
var _ mbackup.Catalog = (*FaultyCatalog)(nil)

// MakeBackupDir creates base/name holding a dump file and, when complete is
// true, a manifest. The directory's modification time is set to modTime.
func MakeBackupDir(t *testing.T, base, name string, modTime time.Time, complete bool) string {
	t.Helper()

	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating backup dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, mbackup.DumpFileName), []byte("-- dump\n"), 0600); err != nil {
		t.Fatalf("writing dump: %v", err)
	}
	if complete {
		if err := os.WriteFile(filepath.Join(dir, mbackup.ManifestName), []byte("manifest\n"), 0600); err != nil {
			t.Fatalf("writing manifest: %v", err)
		}
	}
	if err := os.Chtimes(dir, modTime, modTime); err != nil {
		t.Fatalf("setting mtime: %v", err)
	}
	return dir
}
