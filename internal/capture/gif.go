package capture

import (
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"os"
	"sort"

	"github.com/nfnt/resize"
)

// WriteGIF writes every capture taken so far as one animated GIF, each frame
// shown for delay hundredths of a second. It returns the file size, or 0
// when there is nothing to write.
func (c *Capturer) WriteGIF(path string, delay int) (int64, error) {
	c.mu.Lock()
	frames := append([]image.Image(nil), c.frames...)
	c.mu.Unlock()

	if len(frames) == 0 {
		return 0, nil
	}
	if delay <= 0 {
		delay = 100
	}

	// Frames share the first frame's size
	bounds := frames[0].Bounds()
	width, height := uint(bounds.Dx()), uint(bounds.Dy())

	g := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		LoopCount: 0,
	}
	palette := generatePalette(frames[0])

	for i, frame := range frames {
		if fb := frame.Bounds(); uint(fb.Dx()) != width || uint(fb.Dy()) != height {
			frame = resize.Resize(width, height, frame, resize.Lanczos3)
		}
		paletted := image.NewPaletted(frame.Bounds(), palette)
		draw.FloydSteinberg.Draw(paletted, frame.Bounds(), frame, frame.Bounds().Min)
		g.Image[i] = paletted
		g.Delay[i] = delay
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := gif.EncodeAll(f, g); err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// generatePalette picks the 255 most frequent colors of a sampled image plus
// transparent, padding with grays.
func generatePalette(img image.Image) color.Palette {
	bounds := img.Bounds()
	counts := make(map[color.RGBA]int)

	const step = 4
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, a := img.At(x, y).RGBA()
			counts[color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}]++
		}
	}

	type colorCount struct {
		c     color.RGBA
		count int
	}
	colors := make([]colorCount, 0, len(counts))
	for c, n := range counts {
		colors = append(colors, colorCount{c, n})
	}
	sort.Slice(colors, func(i, j int) bool {
		return colors[i].count > colors[j].count
	})

	palette := make(color.Palette, 0, 256)
	palette = append(palette, color.RGBA{0, 0, 0, 0})
	for i := 0; i < len(colors) && len(palette) < 256; i++ {
		palette = append(palette, colors[i].c)
	}
	for len(palette) < 256 {
		gray := uint8(len(palette))
		palette = append(palette, color.RGBA{gray, gray, gray, 255})
	}
	return palette
}
