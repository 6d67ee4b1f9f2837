package macro

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidMacro is returned when a macro source fails validation
var ErrInvalidMacro = errors.New("invalid macro")

// ErrInvalidStep is returned when a single authored step fails validation
var ErrInvalidStep = errors.New("invalid macro step")

// Action is the kind of DOM interaction a step performs
type Action string

const (
	ActionClick  Action = "click"
	ActionScroll Action = "scroll"
	ActionPrint  Action = "print"
)

// Valid reports whether a is one of the supported actions
func (a Action) Valid() bool {
	switch a {
	case ActionClick, ActionScroll, ActionPrint:
		return true
	}
	return false
}

// Step represents a single macro step
type Step struct {
	Action   Action  `json:"action"`   // click, scroll, print
	Selector string  `json:"selector"` // CSS selector for the target element(s)
	Delay    float64 `json:"delay"`    // Pause before acting, in ms
}

// NewStep builds a validated step
func NewStep(action Action, selector string, delay float64) (Step, error) {
	s := Step{Action: action, Selector: selector, Delay: delay}
	if err := s.Validate(); err != nil {
		return Step{}, err
	}
	return s, nil
}

// Validate checks the step invariants
func (s Step) Validate() error {
	if !s.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidStep, s.Action)
	}
	if s.Selector == "" {
		return fmt.Errorf("%w: empty selector", ErrInvalidStep)
	}
	if math.IsNaN(s.Delay) || math.IsInf(s.Delay, 0) || s.Delay < 0 {
		return fmt.Errorf("%w: delay must be a finite number >= 0", ErrInvalidStep)
	}
	return nil
}

// Wait returns the pre-step delay as a duration
func (s Step) Wait() time.Duration {
	ns := s.Delay * float64(time.Millisecond)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

// String returns the compact JSON form used in diagnostics
func (s Step) String() string {
	data, err := encode(s, false)
	if err != nil {
		return fmt.Sprintf("{action:%s selector:%s delay:%v}", s.Action, s.Selector, s.Delay)
	}
	return string(data)
}

// Macro is an ordered list of steps; order is execution order
type Macro []Step

// rawStep detects missing or mistyped fields, which a plain Step would zero silently
type rawStep struct {
	Action   *string  `json:"action"`
	Selector *string  `json:"selector"`
	Delay    *float64 `json:"delay"`
}

// Parse decodes and validates a serialized macro
func Parse(data []byte) (Macro, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMacro, err)
	}
	if raw == nil {
		// "null" decodes without error
		return nil, fmt.Errorf("%w: expected a JSON array", ErrInvalidMacro)
	}

	m := make(Macro, 0, len(raw))
	for i, item := range raw {
		var r rawStep
		if err := json.Unmarshal(item, &r); err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ErrInvalidMacro, i+1, err)
		}
		if r.Action == nil || r.Selector == nil || r.Delay == nil {
			return nil, fmt.Errorf("%w: step %d: action, selector and delay are required", ErrInvalidMacro, i+1)
		}
		step := Step{Action: Action(*r.Action), Selector: *r.Selector, Delay: *r.Delay}
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ErrInvalidMacro, i+1, err)
		}
		m = append(m, step)
	}
	return m, nil
}

// Marshal serializes a macro to its indented JSON form
func Marshal(m Macro) ([]byte, error) {
	if m == nil {
		m = Macro{}
	}
	return encode(m, true)
}

// Append adds a step to an editing buffer. Existing array elements are kept
// as written, even ones that would not validate. A buffer that is empty or
// does not hold a JSON array starts over from an empty macro.
func Append(buffer []byte, step Step) ([]byte, error) {
	if err := step.Validate(); err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if len(buffer) > 0 {
		if err := json.Unmarshal(buffer, &items); err != nil {
			items = nil
		}
	}

	data, err := encode(step, false)
	if err != nil {
		return nil, err
	}
	items = append(items, data)
	return encode(items, true)
}

// encode marshals v without HTML escaping, so selectors such as "ul > li"
// stay readable
func encode(v any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
