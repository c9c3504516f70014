package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Candidate describes a config file found during discovery.
type Candidate struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Discovery is the outcome of searching the candidate locations.
type Discovery struct {
	// Path is the file to use.
	Path string
	// Exists is false when Path still has to be created.
	Exists bool
	// Conflicts lists every existing candidate when more than one was
	// found, in search order. Path is the first of them.
	Conflicts []Candidate
}

// Discover picks a config file from candidates, in priority order:
//   - several exist: the first existing one, reporting all as conflicts
//   - one exists: that one
//   - none exists: the first location that is writable, else the last candidate
func Discover(candidates []string) (*Discovery, error) {
	if len(candidates) == 0 {
		return nil, errors.New("no config locations to search")
	}

	var found []Candidate
	for _, p := range candidates {
		// Unreachable locations count as absent.
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		found = append(found, Candidate{Path: p, Size: info.Size(), ModTime: info.ModTime()})
	}

	switch len(found) {
	case 0:
		for _, p := range candidates {
			if writable(filepath.Dir(p)) {
				return &Discovery{Path: p}, nil
			}
		}
		return &Discovery{Path: candidates[len(candidates)-1]}, nil
	case 1:
		return &Discovery{Path: found[0].Path, Exists: true}, nil
	default:
		return &Discovery{Path: found[0].Path, Exists: true, Conflicts: found}, nil
	}
}

// writable reports whether a file can be created in dir, creating dir if needed.
func writable(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false
	}
	f, err := os.CreateTemp(dir, ".mbackup-probe-*")
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(f.Name())
	return true
}
