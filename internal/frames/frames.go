// Package frames locates elements by CSS selector across a document and every
// same-origin iframe nested inside it.
//
// The frame tree is never cached: each lookup walks it again, since the page
// may have replaced frames between calls. A frame whose content cannot be
// read (cross-origin), or whose search fails, is pruned from the walk and is
// not an error. Only the root document's own query errors are returned.
package frames

import "context"

// Element is a handle to a matched DOM element
type Element interface {
	// Click invokes the element's native click behavior
	Click(ctx context.Context) error
	// ScrollIntoView brings the element into view, smooth and centered
	ScrollIntoView(ctx context.Context) error
	// OuterHTML returns the element's serialized markup
	OuterHTML(ctx context.Context) (string, error)
}

// Frame is an <iframe> element inside a document
type Frame interface {
	// ContentDocument returns the frame's document. An error means the
	// content is not accessible; a nil document means there is none yet.
	ContentDocument(ctx context.Context) (Document, error)
}

// Document is one node of the frame tree
type Document interface {
	// QuerySelector returns the first match in this document only, or nil.
	// An invalid selector is reported as an error.
	QuerySelector(ctx context.Context, selector string) (Element, error)
	// QuerySelectorAll returns all matches in this document only, in document order
	QuerySelectorAll(ctx context.Context, selector string) ([]Element, error)
	// IFrames returns the document's <iframe> elements in DOM order
	IFrames(ctx context.Context) ([]Frame, error)
}

// FindFirst returns the first element matching selector, searching root before
// descending into its accessible iframes in DOM order. It returns nil when
// nothing matches anywhere.
func FindFirst(ctx context.Context, selector string, root Document) (Element, error) {
	if root == nil {
		return nil, nil
	}

	el, err := root.QuerySelector(ctx, selector)
	if err != nil || el != nil {
		return el, err
	}

	var found Element
	eachChild(ctx, root, func(child Document) bool {
		el, err := FindFirst(ctx, selector, child)
		if err != nil {
			return false
		}
		found = el
		return el != nil
	})
	return found, nil
}

// FindAll returns every element matching selector in root and all accessible
// descendant frames. Root matches come first, then each frame's matches in
// iframe order, depth first.
func FindAll(ctx context.Context, selector string, root Document) ([]Element, error) {
	if root == nil {
		return nil, nil
	}

	results, err := root.QuerySelectorAll(ctx, selector)
	if err != nil {
		return nil, err
	}

	eachChild(ctx, root, func(child Document) bool {
		// A subtree that fails (detached, navigating) contributes nothing
		if els, err := FindAll(ctx, selector, child); err == nil {
			results = append(results, els...)
		}
		return false
	})
	return results, nil
}

// eachChild calls fn for every accessible child document of doc, in iframe
// order, until fn asks to stop. Frames that cannot be read are skipped, and a
// failure to list the iframes means there are none.
func eachChild(ctx context.Context, doc Document, fn func(Document) (stop bool)) {
	iframes, err := doc.IFrames(ctx)
	if err != nil {
		return
	}

	for _, f := range iframes {
		child, err := f.ContentDocument(ctx)
		if err != nil || child == nil {
			continue
		}
		if fn(child) {
			return
		}
	}
}
