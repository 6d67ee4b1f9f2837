package executor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/v0xg/macroweb/internal/diag"
	"github.com/v0xg/macroweb/internal/frames"
	"github.com/v0xg/macroweb/internal/macro"
	"github.com/v0xg/macroweb/internal/waiter"
)

// DefaultSnapshotLimit is how much body markup a not-found diagnostic carries
const DefaultSnapshotLimit = 500

// Dispatcher performs single macro steps against a page
type Dispatcher struct {
	page     Page
	sink     diag.Sink
	status   diag.Status
	opts     Options
	capturer Capturer
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(page Page, sink diag.Sink, status diag.Status, opts Options, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SnapshotLimit <= 0 {
		opts.SnapshotLimit = DefaultSnapshotLimit
	}
	return &Dispatcher{
		page:     page,
		sink:     sink,
		status:   status,
		opts:     opts,
		capturer: opts.Capturer,
		logger:   logger,
	}
}

// Dispatch performs step and reports the outcome through the diagnostics log
// and status. Errors and panics raised by the page never escape.
func (d *Dispatcher) Dispatch(ctx context.Context, index int, step macro.Step) (res StepResult) {
	res = StepResult{Index: index, Step: step}

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = Failed
			res.Err = fmt.Errorf("panic: %v", r)
			d.stepError(res.Err)
		}
	}()

	switch step.Action {
	case macro.ActionClick:
		d.applyAll(ctx, &res, "Click", "Clicked", func(el frames.Element) error {
			return el.Click(ctx)
		})
	case macro.ActionScroll:
		d.applyAll(ctx, &res, "Scroll", "Scrolled to", func(el frames.Element) error {
			return el.ScrollIntoView(ctx)
		})
	case macro.ActionPrint:
		d.print(ctx, &res)
	default:
		res.Outcome = Failed
		res.Err = fmt.Errorf("unknown action type: %s", step.Action)
		d.stepError(res.Err)
	}
	return res
}

// applyAll waits for the step's selector and applies fn to every match
func (d *Dispatcher) applyAll(ctx context.Context, res *StepResult, verb, done string, fn func(frames.Element) error) {
	selector := res.Step.Selector

	els, err := waiter.ForElements(ctx, selector, d.page.Root(), d.opts.Wait)
	if err != nil {
		res.Outcome = Failed
		res.Err = err
		d.stepError(err)
		return
	}

	if len(els) == 0 {
		res.Outcome = NotFound
		msg := fmt.Sprintf("%s failed: selector '%s' not found after waiting", verb, selector)
		d.status.Set(msg, true)
		if res.Step.Action == macro.ActionClick {
			d.sink.Logf("%s. DOM snapshot: %s...", msg, d.snapshot(ctx))
		} else {
			d.sink.Logf("%s.", msg)
		}
		d.capture(ctx, res.Index)
		return
	}

	for _, el := range els {
		if err := fn(el); err != nil {
			res.Outcome = Failed
			res.Err = err
			d.stepError(err)
			return
		}
	}

	res.Outcome = Succeeded
	res.Matched = len(els)
	d.sink.Logf("%s %d element(s): '%s'", done, len(els), selector)
}

// print renders the first match into a new browsing context and prints it.
// Lookup is immediate: print never waits for the selector.
func (d *Dispatcher) print(ctx context.Context, res *StepResult) {
	selector := res.Step.Selector

	fail := func(err error) {
		res.Outcome = Failed
		res.Err = err
		d.status.Set(fmt.Sprintf("Print error: %v", err), true)
		d.sink.Logf("Print error: %v", err)
	}

	el, err := frames.FindFirst(ctx, selector, d.page.Root())
	if err != nil {
		fail(err)
		return
	}
	if el == nil {
		res.Outcome = NotFound
		msg := fmt.Sprintf("Print failed: selector '%s' not found", selector)
		d.status.Set(msg, true)
		d.sink.Logf("%s", msg)
		return
	}

	outer, err := el.OuterHTML(ctx)
	if err != nil {
		fail(err)
		return
	}
	markup, err := printDocument(outer)
	if err != nil {
		fail(err)
		return
	}

	win, err := d.page.OpenWindow(ctx)
	if err != nil || win == nil {
		d.logger.Debug("open window failed", zap.Error(err))
		fail(ErrPopupBlocked)
		return
	}
	defer func() {
		if err := win.Close(); err != nil {
			d.logger.Warn("close print window", zap.Error(err))
		}
	}()

	if err := win.Write(ctx, markup); err != nil {
		fail(err)
		return
	}
	location, err := win.Print(ctx)
	if err != nil {
		fail(err)
		return
	}

	res.Outcome = Succeeded
	res.Matched = 1
	d.sink.Logf("Print triggered for: '%s'", selector)
	if location != "" {
		d.sink.Logf("Print output: %s", location)
	}
}

func (d *Dispatcher) stepError(err error) {
	d.status.Set(fmt.Sprintf("Macro step failed: %v", err), true)
	d.sink.Logf("Step error: %v", err)
}

// snapshot returns the leading part of the page markup, or a placeholder
func (d *Dispatcher) snapshot(ctx context.Context) string {
	s, err := d.page.Snapshot(ctx)
	if err != nil {
		d.logger.Debug("snapshot failed", zap.Error(err))
		return "(unavailable)"
	}
	r := []rune(s)
	if len(r) > d.opts.SnapshotLimit {
		r = r[:d.opts.SnapshotLimit]
	}
	return string(r)
}

func (d *Dispatcher) capture(ctx context.Context, index int) {
	if d.capturer == nil {
		return
	}
	path, err := d.capturer.Capture(ctx, fmt.Sprintf("step-%d", index))
	if err != nil {
		d.logger.Warn("capture failed", zap.Int("step", index), zap.Error(err))
		return
	}
	d.sink.Logf("Saved capture: %s", path)
}

// printDocument wraps an element's markup in a minimal standalone document
func printDocument(outerHTML string) (string, error) {
	doc := &html.Node{Type: html.DocumentNode}
	root := &html.Node{Type: html.ElementNode, Data: "html", DataAtom: atom.Html}
	head := &html.Node{Type: html.ElementNode, Data: "head", DataAtom: atom.Head}
	title := &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

	title.AppendChild(&html.Node{Type: html.TextNode, Data: "Print"})
	head.AppendChild(title)
	root.AppendChild(head)
	root.AppendChild(body)
	doc.AppendChild(root)

	nodes, err := html.ParseFragment(strings.NewReader(outerHTML), body)
	if err != nil {
		return "", fmt.Errorf("parse element markup: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return "", fmt.Errorf("render print document: %w", err)
	}
	return sb.String(), nil
}
