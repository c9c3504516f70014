package vault

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mbackup-go/internal/mbackup"
)

// FileSystemVault stores offsite copies under a local or mounted directory,
// mirroring the object keys as paths:
//
//	<root>/
//	  <kind>/
//	    <backup directory>/
//	      <file>
type FileSystemVault struct {
	name string
	root string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vault root: %w", err)
	}

	return &FileSystemVault{
		name: name,
		root: root,
	}, nil
}

func (v *FileSystemVault) Name() string {
	return v.name
}

// PutObject writes the object to its key path, replacing any existing file.
func (v *FileSystemVault) PutObject(_ context.Context, key string, r io.Reader, size int64) error {
	destPath, err := v.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}
	return v.writeFile(destPath, r, size)
}

// DeletePrefix removes the directory holding the objects below prefix.
func (v *FileSystemVault) DeletePrefix(_ context.Context, prefix string) error {
	dir, err := v.objectPath(prefix)
	if err != nil {
		return err
	}
	if dir == filepath.Clean(v.root) {
		return fmt.Errorf("refusing to delete the vault root")
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete %s: %w", prefix, err)
	}
	return nil
}

// objectPath maps a key to a path below root, rejecting keys that escape it.
func (v *FileSystemVault) objectPath(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	return filepath.Join(v.root, clean), nil
}

// ValidateSetup verifies that the vault root exists and is writable.
func (v *FileSystemVault) ValidateSetup(context.Context) error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	probe, err := os.CreateTemp(v.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("vault root not writable: %w", err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemVault implements mbackup.Vault interface
var _ mbackup.Vault = (*FileSystemVault)(nil)
