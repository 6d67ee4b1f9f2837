// Package diag holds the two surfaces a macro run reports through: the
// append-only diagnostics log and the single-line status indicator.
package diag

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Sink receives diagnostic entries
type Sink interface {
	Logf(format string, args ...any)
}

// RunScoped is implemented by sinks that tag entries with the current run
type RunScoped interface {
	SetRunID(id string)
}

// Log is an append-only diagnostics log. It stays hidden until the first
// entry is written; after that every entry is echoed to out, one per line.
type Log struct {
	mu     sync.Mutex
	lines  []string
	out    io.Writer
	logger *zap.Logger
	runID  string
}

// NewLog creates a log that echoes to out (may be nil) and mirrors entries to
// logger at debug level.
func NewLog(out io.Writer, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{out: out, logger: logger}
}

// Logf appends one entry. Embedded newlines are flattened so an entry is
// always a single line.
func (l *Log) Logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	line = strings.ReplaceAll(line, "\r", "")
	line = strings.ReplaceAll(line, "\n", " ")

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out != nil {
		if len(l.lines) == 0 {
			fmt.Fprintln(l.out, "Diagnostics:")
		}
		fmt.Fprintf(l.out, "  %s\n", line)
	}
	l.lines = append(l.lines, line)
	if l.runID != "" {
		l.logger.Debug("diagnostic", zap.String("run_id", l.runID), zap.String("entry", line))
		return
	}
	l.logger.Debug("diagnostic", zap.String("entry", line))
}

// SetRunID tags the entries mirrored to zap from now on
func (l *Log) SetRunID(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runID = id
}

// Visible reports whether anything has been written yet
func (l *Log) Visible() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines) > 0
}

// Lines returns a copy of all entries in write order
func (l *Log) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.lines)
}

// String returns the log as newline-terminated text
func (l *Log) String() string {
	lines := l.Lines()
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
