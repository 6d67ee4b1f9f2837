// Package capture saves scaled-down screenshots of the page when a macro step
// cannot find its target, and can bundle them into an animated GIF.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nfnt/resize"
)

// DefaultMaxWidth is the width captures are scaled down to
const DefaultMaxWidth = 800

// Screenshotter grabs the current viewport as PNG bytes
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Options configures a Capturer
type Options struct {
	Dir      string
	MaxWidth uint
}

// Capturer writes thumbnails into a directory. It remembers what it took so
// the session can be replayed with WriteGIF.
type Capturer struct {
	source Screenshotter
	opts   Options

	mu     sync.Mutex
	frames []image.Image
}

// New creates a capturer reading from source
func New(source Screenshotter, opts Options) *Capturer {
	if opts.MaxWidth == 0 {
		opts.MaxWidth = DefaultMaxWidth
	}
	return &Capturer{source: source, opts: opts}
}

// Capture screenshots the page, scales it and writes <dir>/<time>-<name>.png.
// It returns the written path.
func (c *Capturer) Capture(ctx context.Context, name string) (string, error) {
	raw, err := c.source.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}
	thumb := scale(img, c.opts.MaxWidth)

	if err := os.MkdirAll(c.opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create capture dir: %w", err)
	}
	path := filepath.Join(c.opts.Dir, fmt.Sprintf("%s-%s.png", time.Now().Format("20060102-150405.000"), name))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := png.Encode(f, thumb); err != nil {
		return "", fmt.Errorf("encode capture: %w", err)
	}

	c.mu.Lock()
	c.frames = append(c.frames, thumb)
	c.mu.Unlock()
	return path, nil
}

// Count returns how many captures were taken
func (c *Capturer) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// scale shrinks img to maxWidth keeping the aspect ratio. Narrower images
// are returned as is.
func scale(img image.Image, maxWidth uint) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= int(maxWidth) {
		return img
	}
	aspectRatio := float64(bounds.Dy()) / float64(bounds.Dx())
	height := uint(float64(maxWidth) * aspectRatio)
	if height == 0 {
		height = 1
	}
	return resize.Resize(maxWidth, height, img, resize.Lanczos3)
}
