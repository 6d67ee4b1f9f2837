package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/v0xg/macroweb/internal/frames"
)

// Document adapts a Rod page, or a frame entered through an iframe, to
// frames.Document
type Document struct {
	page *rod.Page
}

// QuerySelector returns the first match without waiting for one to appear
func (d *Document) QuerySelector(ctx context.Context, selector string) (frames.Element, error) {
	has, el, err := d.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if !has {
		return nil, nil
	}
	return &Element{el: el}, nil
}

// QuerySelectorAll returns every match in this document
func (d *Document) QuerySelectorAll(ctx context.Context, selector string) ([]frames.Element, error) {
	els, err := d.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	out := make([]frames.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &Element{el: el})
	}
	return out, nil
}

// IFrames lists the document's iframe elements in DOM order
func (d *Document) IFrames(ctx context.Context) ([]frames.Frame, error) {
	els, err := d.page.Context(ctx).Elements("iframe")
	if err != nil {
		return nil, err
	}
	out := make([]frames.Frame, 0, len(els))
	for _, el := range els {
		out = append(out, &Frame{el: el})
	}
	return out, nil
}

// Frame adapts an iframe element
type Frame struct {
	el *rod.Element
}

// ContentDocument enters the frame if the embedding page's own script could
// read its content; anything else is reported as inaccessible.
func (f *Frame) ContentDocument(ctx context.Context) (frames.Document, error) {
	el := f.el.Context(ctx)

	res, err := el.Eval(frameAccessScript)
	if err != nil {
		return nil, err
	}
	if !res.Value.Bool() {
		return nil, errCrossOrigin
	}

	page, err := el.Frame()
	if err != nil {
		return nil, err
	}
	return &Document{page: page}, nil
}

var errCrossOrigin = errors.New("frame content is not accessible")

// Element adapts a Rod element
type Element struct {
	el *rod.Element
}

// Click fires the element's native click()
func (e *Element) Click(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(clickScript)
	return err
}

// ScrollIntoView scrolls the element to the viewport center
func (e *Element) ScrollIntoView(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(scrollIntoViewScript)
	return err
}

// OuterHTML returns the element's markup
func (e *Element) OuterHTML(ctx context.Context) (string, error) {
	return e.el.Context(ctx).HTML()
}
