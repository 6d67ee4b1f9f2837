package diag

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Status is a single-line indicator; each call replaces the previous message
type Status interface {
	Set(msg string, isErr bool)
}

// Console renders status to a terminal. On a character device the line is
// rewritten in place; otherwise each update is printed on its own line.
type Console struct {
	mu        sync.Mutex
	out       io.Writer
	overwrite bool
	dirty     bool
}

// NewConsole creates a console status writing to out
func NewConsole(out io.Writer) *Console {
	return &Console{out: out, overwrite: isTerminal(out)}
}

// Set replaces the current status line
func (c *Console) Set(msg string, isErr bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := "→"
	if isErr {
		prefix = "✗"
	}
	if c.overwrite {
		fmt.Fprintf(c.out, "\r\x1b[K%s %s", prefix, msg)
		c.dirty = true
		return
	}
	fmt.Fprintf(c.out, "%s %s\n", prefix, msg)
}

// Flush ends an in-place line so later output starts on a fresh one
func (c *Console) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty {
		fmt.Fprintln(c.out)
		c.dirty = false
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Recorder keeps only the latest status
type Recorder struct {
	mu    sync.Mutex
	msg   string
	isErr bool
}

// Set replaces the recorded status
func (r *Recorder) Set(msg string, isErr bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msg, r.isErr = msg, isErr
}

// Last returns the current status and whether it is an error
func (r *Recorder) Last() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msg, r.isErr
}
