package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/v0xg/macroweb/internal/frames"
	"github.com/v0xg/macroweb/internal/macro"
)

// ErrPopupBlocked is returned when a new browsing context cannot be opened
var ErrPopupBlocked = errors.New("Popup blocked")

// Page is the live page a macro runs against
type Page interface {
	// Root returns the top-level document
	Root() frames.Document
	// Snapshot returns the top document's body markup
	Snapshot(ctx context.Context) (string, error)
	// OpenWindow opens a new, empty browsing context
	OpenWindow(ctx context.Context) (Window, error)
}

// Window is a browsing context opened for printing
type Window interface {
	// Write replaces the window's document with markup
	Write(ctx context.Context, markup string) error
	// Print prints the current document and returns where the output went,
	// if anywhere
	Print(ctx context.Context) (string, error)
	Close() error
}

// Capturer saves a picture of the page when a lookup comes up empty
type Capturer interface {
	Capture(ctx context.Context, name string) (string, error)
}

// Outcome is the result of one step
type Outcome int

const (
	Succeeded Outcome = iota
	NotFound
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case NotFound:
		return "not-found"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// StepResult records what happened to a single step
type StepResult struct {
	Index   int // 1-based position in the macro
	Step    macro.Step
	Outcome Outcome
	Matched int   // Elements the action was applied to
	Err     error // Set when Outcome is Failed
}

// Summary aggregates the results of one run
type Summary struct {
	RunID   string
	Results []StepResult
}

// Count returns the number of steps with outcome o
func (s Summary) Count(o Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// Succeeded returns the number of steps that applied their action
func (s Summary) Succeeded() int { return s.Count(Succeeded) }

// NotFound returns the number of steps whose selector never matched
func (s Summary) NotFound() int { return s.Count(NotFound) }

// Failed returns the number of steps whose action raised an error
func (s Summary) Failed() int { return s.Count(Failed) }
