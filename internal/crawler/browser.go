package crawler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"

	"github.com/v0xg/macroweb/internal/executor"
	"github.com/v0xg/macroweb/internal/frames"
)

// Options configures how the browser is obtained
type Options struct {
	URL        string        // Page to open; empty keeps the current tab when attaching
	RemoteURL  string        // DevTools control URL of a running browser to attach to
	Width      int
	Height     int
	Headless   bool
	ProfileDir string        // Chrome/Chromium profile directory for authenticated sessions
	Stealth    bool          // Mask automation fingerprints on launched pages
	PrintDir   string        // Where print output is written
	Timeout    time.Duration // Page load timeout
}

// Browser wraps the Rod browser and the page macros run against
type Browser struct {
	browser *rod.Browser
	page    *rod.Page
	opts    Options
	owned   bool // launched by us, so closing it is ours to do
	logger  *zap.Logger
}

// Launch starts a browser, or attaches to one when RemoteURL is set, and
// settles on the page to drive.
func Launch(ctx context.Context, opts Options, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	b := &Browser{opts: opts, logger: logger}

	controlURL := opts.RemoteURL
	if controlURL == "" {
		path, _ := launcher.LookPath()
		l := launcher.New().Bin(path).Headless(opts.Headless).Leakless(true)
		if opts.ProfileDir != "" {
			l = l.UserDataDir(opts.ProfileDir)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		b.owned = true
	}

	b.browser = rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	page, err := b.openPage()
	if err != nil {
		b.Close()
		return nil, err
	}
	b.page = page

	if opts.Width > 0 && opts.Height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.Width,
			Height:            opts.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			logger.Warn("failed to set viewport", zap.Error(err))
		}
	}

	if err := page.Timeout(opts.Timeout).WaitLoad(); err != nil {
		logger.Warn("page did not finish loading", zap.Error(err))
	}

	logger.Info("browser ready",
		zap.Bool("attached", !b.owned),
		zap.String("url", b.URL()))
	return b, nil
}

// openPage picks the page to drive: the first tab of an attached browser
// unless a URL is given, otherwise a fresh tab at the URL.
func (b *Browser) openPage() (*rod.Page, error) {
	if !b.owned && b.opts.URL == "" {
		pages, err := b.browser.Pages()
		if err != nil {
			return nil, fmt.Errorf("list pages: %w", err)
		}
		if len(pages) > 0 {
			return pages.First(), nil
		}
	}

	url := b.opts.URL
	if url == "" {
		url = "about:blank"
	}

	if b.opts.Stealth {
		page, err := stealth.Page(b.browser)
		if err != nil {
			return nil, fmt.Errorf("create stealth page: %w", err)
		}
		if err := page.Navigate(url); err != nil {
			return nil, fmt.Errorf("navigate to %s: %w", url, err)
		}
		return page, nil
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	return page, nil
}

// Close cleans up browser resources. An attached browser is left running.
func (b *Browser) Close() {
	if !b.owned {
		return
	}
	if b.page != nil {
		_ = b.page.Close()
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			b.logger.Warn("close browser", zap.Error(err))
		}
	}
}

// Page returns the underlying Rod page
func (b *Browser) Page() *rod.Page {
	return b.page
}

// URL returns the current page URL, or "" if it cannot be read
func (b *Browser) URL() string {
	info, err := b.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Root implements executor.Page
func (b *Browser) Root() frames.Document {
	return &Document{page: b.page}
}

// Snapshot implements executor.Page
func (b *Browser) Snapshot(ctx context.Context) (string, error) {
	res, err := b.page.Context(ctx).Eval(snapshotScript)
	if err != nil {
		return "", fmt.Errorf("read body markup: %w", err)
	}
	return res.Value.String(), nil
}

// OpenWindow implements executor.Page
func (b *Browser) OpenWindow(ctx context.Context) (executor.Window, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", executor.ErrPopupBlocked, err)
	}
	return &Window{page: page, dir: b.opts.PrintDir}, nil
}

// Screenshot captures the visible viewport as PNG
func (b *Browser) Screenshot(ctx context.Context) ([]byte, error) {
	return b.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// PressKey relays a key press to the page. Named keys (Enter, Escape, Tab,
// ...) are pressed; any other text is typed.
func (b *Browser) PressKey(ctx context.Context, key string) error {
	page := b.page.Context(ctx)
	if k, ok := namedKeys[key]; ok {
		return page.Keyboard.Press(k)
	}
	if key == "" {
		return fmt.Errorf("empty key")
	}
	return page.InsertText(key)
}

var namedKeys = map[string]input.Key{
	"Enter":      input.Enter,
	"Escape":     input.Escape,
	"Tab":        input.Tab,
	"Backspace":  input.Backspace,
	"Delete":     input.Delete,
	"Space":      input.Space,
	"ArrowDown":  input.ArrowDown,
	"ArrowUp":    input.ArrowUp,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
	"PageDown":   input.PageDown,
	"PageUp":     input.PageUp,
	"Home":       input.Home,
	"End":        input.End,
}

// Window is a separate tab opened for printing
type Window struct {
	page *rod.Page
	dir  string
}

// Write replaces the tab's document
func (w *Window) Write(ctx context.Context, markup string) error {
	return w.page.Context(ctx).SetDocumentContent(markup)
}

// Print renders the tab to PDF in the print directory and returns the path
func (w *Window) Print(ctx context.Context) (string, error) {
	stream, err := w.page.Context(ctx).PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return "", fmt.Errorf("print to pdf: %w", err)
	}

	dir := w.dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create print dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("print-%s.pdf", time.Now().Format("20060102-150405.000")))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.ReadFrom(stream); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return path, nil
}

// Close closes the tab
func (w *Window) Close() error {
	return w.page.Close()
}
