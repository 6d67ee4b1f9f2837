package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScreen struct {
	width, height int
	err           error
}

func (s fakeScreen) Screenshot(ctx context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	for x := 0; x < s.width; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestCapture_ScalesDown(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures")
	c := New(fakeScreen{width: 1600, height: 900}, Options{Dir: dir})

	path, err := c.Capture(context.Background(), "step-2")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "-step-2.png"))

	img := decodePNG(t, path)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 450, img.Bounds().Dy())
	assert.Equal(t, 1, c.Count())
}

func TestCapture_KeepsSmallImages(t *testing.T) {
	c := New(fakeScreen{width: 320, height: 200}, Options{Dir: t.TempDir(), MaxWidth: 640})

	path, err := c.Capture(context.Background(), "x")
	require.NoError(t, err)

	img := decodePNG(t, path)
	assert.Equal(t, image.Rect(0, 0, 320, 200), img.Bounds())
}

func TestCapture_ScreenshotError(t *testing.T) {
	c := New(fakeScreen{err: errors.New("target closed")}, Options{Dir: t.TempDir()})

	_, err := c.Capture(context.Background(), "x")
	assert.ErrorContains(t, err, "target closed")
	assert.Zero(t, c.Count())
}

func TestWriteGIF(t *testing.T) {
	dir := t.TempDir()
	c := New(fakeScreen{width: 100, height: 50}, Options{Dir: dir})

	size, err := c.WriteGIF(filepath.Join(dir, "empty.gif"), 50)
	require.NoError(t, err)
	assert.Zero(t, size)

	for i := 0; i < 3; i++ {
		_, err := c.Capture(context.Background(), "f")
		require.NoError(t, err)
	}

	out := filepath.Join(dir, "failures.gif")
	size, err = c.WriteGIF(out, 50)
	require.NoError(t, err)
	assert.Positive(t, size)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	g, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, g.Image, 3)
	assert.Equal(t, []int{50, 50, 50}, g.Delay)
}

func TestGeneratePalette(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	palette := generatePalette(img)
	assert.Len(t, palette, 256)
	assert.Equal(t, color.RGBA{0, 0, 0, 0}, palette[0])
}
