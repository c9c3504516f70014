package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LogFileName is the log file created under log_dir.
const LogFileName = "mbackup.log"

// secretMarkers are substrings of attribute keys whose values never reach a log.
var secretMarkers = []string{"password", "pwd", "secret", "token"}

// runHandler is a custom slog.Handler. With a run ID it writes file lines:
//
//	<timestamp>\t<level>\t<runID>\t<message>\t<key=value ...>
//
// Without one it writes the shorter console form <level>\t<message>\t<key=value ...>.
// Values of secret-looking keys are masked and values that would break the
// columns are quoted.
type runHandler struct {
	w      io.Writer
	runID  string
	level  slog.Leveler
	prefix string // group path, "a.b."
	pre    string // rendered WithAttrs attributes
}

func (h *runHandler) Enabled(_ context.Context, l slog.Level) bool {
	if h.level == nil {
		return true
	}
	return l >= h.level.Level()
}

func (h *runHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	if h.runID != "" {
		b.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05Z"))
		b.WriteByte('\t')
	}
	b.WriteString(r.Level.String())
	if h.runID != "" {
		b.WriteByte('\t')
		b.WriteString(h.runID)
	}
	b.WriteByte('\t')
	b.WriteString(r.Message)
	b.WriteString(h.pre)

	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	// One write per line keeps lines whole when runs share the file.
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.pre)
	for _, a := range attrs {
		writeAttr(&b, h.prefix, a)
	}
	next := *h
	next.pre = b.String()
	return &next
}

func (h *runHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range v.Group() {
			writeAttr(b, prefix, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}

	b.WriteByte('\t')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(formatValue(a.Key, v))
}

func formatValue(key string, v slog.Value) string {
	lower := strings.ToLower(key)
	for _, m := range secretMarkers {
		if strings.Contains(lower, m) {
			return "****"
		}
	}
	s := v.String()
	if s == "" || strings.ContainsAny(s, " \t\n\r\"=") {
		return strconv.Quote(s)
	}
	return s
}

// multiHandler sends each record to every handler that accepts its level.
type multiHandler []slog.Handler

func (m multiHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(multiHandler, len(m))
	for i, h := range m {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	next := make(multiHandler, len(m))
	for i, h := range m {
		next[i] = h.WithGroup(name)
	}
	return next
}

// newLogger creates a structured logger that writes every level to
// logDir/mbackup.log and, when console is non-nil, Info and above to console.
// It returns the slog.Logger, the open log file (for cleanup), and any error.
func newLogger(logDir, runID string, console io.Writer) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, LogFileName)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	var h slog.Handler = &runHandler{w: f, runID: runID, level: slog.LevelDebug}
	if console != nil {
		h = multiHandler{h, &runHandler{w: console, level: slog.LevelInfo}}
	}
	return slog.New(h), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the mbackup.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
