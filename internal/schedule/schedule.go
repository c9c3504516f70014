// Package schedule manages the crontab entries that run scheduled backups.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"mbackup-go/internal/mbackup"
)

const (
	// Tag marks crontab lines owned by this tool.
	Tag = "mbackup"

	// LogPath receives the output of scheduled runs.
	LogPath = "/var/log/mbackup.log"
)

var ErrUnknownPreset = errors.New("unknown schedule preset")

// Entry schedules one backup kind.
type Entry struct {
	Kind     mbackup.Kind
	Schedule string
}

var (
	hourly  = Entry{Kind: mbackup.Hourly, Schedule: "0 * * * *"}
	daily   = Entry{Kind: mbackup.Daily, Schedule: "0 2 * * *"}
	monthly = Entry{Kind: mbackup.Monthly, Schedule: "0 3 1 * *"}
)

var presets = map[string][]Entry{
	"all":           {hourly, daily, monthly},
	"daily":         {daily},
	"daily-monthly": {daily, monthly},
}

// Presets returns the preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns the entries of a named preset.
func Preset(name string) ([]Entry, error) {
	entries, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownPreset, name, strings.Join(Presets(), ", "))
	}
	return append([]Entry(nil), entries...), nil
}

// Custom builds entries from per-kind schedules, skipping empty ones.
// Schedules are not parsed; cron reports syntax errors itself.
func Custom(schedules map[mbackup.Kind]string) ([]Entry, error) {
	var entries []Entry
	for _, k := range mbackup.RotatedKinds() {
		s := strings.TrimSpace(schedules[k])
		if s == "" {
			continue
		}
		if strings.ContainsAny(s, "\n\r") {
			return nil, fmt.Errorf("schedule for %s must be a single line", k)
		}
		entries = append(entries, Entry{Kind: k, Schedule: s})
	}
	if len(entries) == 0 {
		return nil, errors.New("no schedules given")
	}
	return entries, nil
}

// Render produces the crontab lines for entries, each preceded by a tagged comment.
func Render(entries []Entry, binary, configPath string) []string {
	var lines []string
	for i, e := range entries {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines,
			fmt.Sprintf("# %s %s backup", Tag, e.Kind),
			fmt.Sprintf("%s %s backup %s --config %s >> %s 2>&1", e.Schedule, binary, e.Kind, configPath, LogPath),
		)
	}
	return lines
}

// isMarker reports whether line is a comment written by Render.
func isMarker(line string) bool {
	f := strings.Fields(line)
	if len(f) != 4 || f[0] != "#" || f[1] != Tag || f[3] != "backup" {
		return false
	}
	kind, err := mbackup.ParseKind(f[2])
	return err == nil && kind.Rotated()
}

// Split separates managed lines from the rest of a crontab. A managed entry
// is a marker comment and the command line right after it. Blank lines are
// dropped from both.
func Split(crontab string) (managed, other []string) {
	afterMarker := false
	for _, line := range strings.Split(crontab, "\n") {
		switch {
		case strings.TrimSpace(line) == "":
			afterMarker = false
		case isMarker(line):
			managed = append(managed, line)
			afterMarker = true
		case afterMarker:
			managed = append(managed, line)
			afterMarker = false
		default:
			other = append(other, line)
		}
	}
	return managed, other
}

// Merge replaces every managed line of crontab with lines.
func Merge(crontab string, lines []string) string {
	_, other := Split(crontab)
	if len(other) == 0 {
		return strings.Join(lines, "\n") + "\n"
	}
	return strings.Join(other, "\n") + "\n\n" + strings.Join(lines, "\n") + "\n"
}

// Strip removes every managed line from crontab.
func Strip(crontab string) string {
	_, other := Split(crontab)
	if len(other) == 0 {
		return ""
	}
	return strings.Join(other, "\n") + "\n"
}

// Crontab reads and replaces the current user's crontab.
type Crontab interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, content string) error
}

// Manager edits the managed entries of a crontab.
type Manager struct {
	crontab    Crontab
	binary     string
	configPath string
}

// NewManager creates a Manager whose entries invoke binary with configPath.
func NewManager(crontab Crontab, binary, configPath string) *Manager {
	return &Manager{crontab: crontab, binary: binary, configPath: configPath}
}

// Show returns the managed lines currently installed.
func (m *Manager) Show(ctx context.Context) ([]string, error) {
	current, err := m.crontab.Read(ctx)
	if err != nil {
		return nil, err
	}
	managed, _ := Split(current)
	return managed, nil
}

// Install replaces the managed entries with entries and returns the
// lines that were installed. Other crontab lines are preserved.
func (m *Manager) Install(ctx context.Context, entries []Entry) ([]string, error) {
	current, err := m.crontab.Read(ctx)
	if err != nil {
		return nil, err
	}
	lines := Render(entries, m.binary, m.configPath)
	if err := m.crontab.Write(ctx, Merge(current, lines)); err != nil {
		return nil, err
	}
	return lines, nil
}

// Remove deletes every managed line and reports how many were removed.
func (m *Manager) Remove(ctx context.Context) (int, error) {
	current, err := m.crontab.Read(ctx)
	if err != nil {
		return 0, err
	}
	managed, _ := Split(current)
	if len(managed) == 0 {
		return 0, nil
	}
	if err := m.crontab.Write(ctx, Strip(current)); err != nil {
		return 0, err
	}
	return len(managed), nil
}
