// Package framestest provides an in-memory frame tree for exercising lookups
// and actions without a browser.
package framestest

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/v0xg/macroweb/internal/frames"
)

// ErrCrossOrigin is returned by frames created with AddCrossOriginFrame
var ErrCrossOrigin = errors.New("blocked a frame with origin from accessing a cross-origin frame")

// Element is a fake DOM element that answers to a fixed set of selectors
type Element struct {
	Name     string
	HTML     string
	Matches  []string
	ClickErr error

	mu      sync.Mutex
	clicks  int
	scrolls int
}

// NewElement creates an element matching the given selectors
func NewElement(name string, selectors ...string) *Element {
	return &Element{
		Name:    name,
		HTML:    "<div id=\"" + name + "\"></div>",
		Matches: selectors,
	}
}

func (e *Element) matches(selector string) bool {
	return slices.Contains(e.Matches, selector)
}

// Click records a click
func (e *Element) Click(ctx context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clicks++
	return nil
}

// ScrollIntoView records a scroll
func (e *Element) ScrollIntoView(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scrolls++
	return nil
}

// OuterHTML returns the configured markup
func (e *Element) OuterHTML(ctx context.Context) (string, error) {
	return e.HTML, nil
}

// Clicks returns how many times Click succeeded
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Scrolls returns how many times ScrollIntoView was called
func (e *Element) Scrolls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scrolls
}

// Document is a fake document. It is safe to mutate while a lookup polls it.
type Document struct {
	// QueryErr, when set, fails every selector query (an invalid selector)
	QueryErr error
	// IFramesErr, when set, fails listing the iframes
	IFramesErr error

	mu       sync.Mutex
	elements []*Element
	iframes  []frames.Frame
	queries  int
}

// NewDocument creates a document holding els in document order
func NewDocument(els ...*Element) *Document {
	return &Document{elements: els}
}

// Add appends an element, as a page script would
func (d *Document) Add(el *Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements = append(d.elements, el)
}

// AddFrame embeds child as a same-origin iframe
func (d *Document) AddFrame(child *Document) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.iframes = append(d.iframes, &Frame{doc: child})
}

// AddCrossOriginFrame embeds an iframe whose content cannot be read. Its
// document is still held so tests can prove it is never searched.
func (d *Document) AddCrossOriginFrame(child *Document) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.iframes = append(d.iframes, &Frame{doc: child, err: ErrCrossOrigin})
}

// AddEmptyFrame embeds an iframe that has no document yet
func (d *Document) AddEmptyFrame() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.iframes = append(d.iframes, &Frame{})
}

// Queries returns the number of selector queries made against this document
func (d *Document) Queries() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queries
}

// QuerySelector implements frames.Document
func (d *Document) QuerySelector(ctx context.Context, selector string) (frames.Element, error) {
	els, err := d.QuerySelectorAll(ctx, selector)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

// QuerySelectorAll implements frames.Document
func (d *Document) QuerySelectorAll(ctx context.Context, selector string) ([]frames.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries++
	if d.QueryErr != nil {
		return nil, d.QueryErr
	}

	var out []frames.Element
	for _, el := range d.elements {
		if el.matches(selector) {
			out = append(out, el)
		}
	}
	return out, nil
}

// IFrames implements frames.Document
func (d *Document) IFrames(ctx context.Context) ([]frames.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.IFramesErr != nil {
		return nil, d.IFramesErr
	}
	return slices.Clone(d.iframes), nil
}

// Frame is a fake iframe
type Frame struct {
	doc *Document
	err error
}

// ContentDocument implements frames.Frame
func (f *Frame) ContentDocument(ctx context.Context) (frames.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.doc == nil {
		return nil, nil
	}
	return f.doc, nil
}
