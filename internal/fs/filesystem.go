package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"mbackup-go/internal/mbackup"
)

// OSCatalog is the real filesystem implementation of mbackup.Catalog.
type OSCatalog struct {
	idgen mbackup.IDGenerator
}

// NewOSCatalog creates a catalog that operates on the real filesystem.
func NewOSCatalog(idgen mbackup.IDGenerator) *OSCatalog {
	return &OSCatalog{idgen: idgen}
}

// Scan lists the immediate entries of baseDir. Directories are annotated
// with their non-recursive size and whether they hold a manifest.
// Entries that vanish while scanning are skipped.
func (c *OSCatalog) Scan(baseDir string) ([]mbackup.DirEntry, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var out []mbackup.DirEntry
	for _, entry := range entries {
		p := filepath.Join(baseDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}

		e := mbackup.DirEntry{
			Name:    entry.Name(),
			Path:    p,
			IsDir:   entry.IsDir(),
			ModTime: info.ModTime(),
		}
		if e.IsDir {
			files, err := c.Files(p)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return nil, err
			}
			for _, f := range files {
				e.Size += f.Size
				if f.Name == mbackup.ManifestName {
					e.HasManifest = true
				}
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// EnsureDir creates dir and its parents if absent.
func (c *OSCatalog) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return nil
}

// Replace leaves dir present and empty. An existing dir is first renamed
// to a hidden sibling in one step, so readers never see it half deleted,
// then removed.
func (c *OSCatalog) Replace(dir string) (bool, error) {
	replaced := false

	if _, err := os.Lstat(dir); err == nil {
		aside := filepath.Join(filepath.Dir(dir), ".replaced-"+filepath.Base(dir)+"-"+c.idgen.New())
		switch err := os.Rename(dir, aside); {
		case err == nil:
			replaced = true
			if err := os.RemoveAll(aside); err != nil {
				return replaced, fmt.Errorf("removing replaced backup: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// Removed by a concurrent run.
		default:
			return false, fmt.Errorf("moving existing backup aside: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", dir, err)
	}

	if err := os.Mkdir(dir, 0755); err != nil && !errors.Is(err, fs.ErrExist) {
		return replaced, fmt.Errorf("creating backup directory: %w", err)
	}
	return replaced, nil
}

// Remove deletes dir recursively. A missing dir is not an error.
func (c *OSCatalog) Remove(dir string) error {
	return os.RemoveAll(dir)
}

func (c *OSCatalog) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// Exists reports whether path exists.
func (c *OSCatalog) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Create creates or truncates a file readable only by its owner.
func (c *OSCatalog) Create(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
}

// Open opens a file for reading.
func (c *OSCatalog) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// OpenDump opens an SQL file, decompressing it when it ends in ".gz".
func (c *OSCatalog) OpenDump(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading gzip header: %w", err)
	}
	return &gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	zerr := g.Reader.Close()
	ferr := g.f.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}

// Files lists the regular files directly inside dir, sorted by name.
func (c *OSCatalog) Files(dir string) ([]mbackup.FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var files []mbackup.FileInfo
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		files = append(files, mbackup.FileInfo{
			Name: entry.Name(),
			Path: filepath.Join(dir, entry.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// Compress gzips path into path+".gz" and removes the original.
// The compressed file only appears under its final name once complete.
func (c *OSCatalog) Compress(path string) (string, error) {
	dst := path + ".gz"
	tmp := dst + ".tmp"

	if err := gzipFileTo(path, tmp); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("compressing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("renaming compressed file: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return dst, fmt.Errorf("removing uncompressed file: %w", err)
	}
	return dst, nil
}

func gzipFileTo(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	zw := gzip.NewWriter(out)
	zw.Name = filepath.Base(src)
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		out.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Compile-time check that OSCatalog implements mbackup.Catalog
var _ mbackup.Catalog = (*OSCatalog)(nil)
