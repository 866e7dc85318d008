package overlay

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/makeworld-the-better-one/dither/v2"
	"github.com/mattn/go-sixel"
	"github.com/soniakeys/quant/median"
)

// DefaultSixelColors is the palette size used when none is configured
const DefaultSixelColors = 255

// SixelRenderer draws with DEC Sixel graphics. Sixel has no placements, so a
// moved frame is erased and drawn again.
type SixelRenderer struct {
	Colors int
	// OptimizePalette builds a median-cut palette and dithers to it before encoding
	OptimizePalette bool
}

func (r *SixelRenderer) Protocol() Protocol {
	return Sixel
}

func (r *SixelRenderer) Draw(w io.Writer, img image.Image, prev *Frame, next Frame) error {
	if prev != nil {
		if err := eraseRect(w, *prev); err != nil {
			return err
		}
	}

	colors := r.Colors
	if colors <= 0 {
		colors = DefaultSixelColors
	}
	colors = min(max(colors, 2), 255)

	var buf bytes.Buffer
	enc := sixel.NewEncoder(&buf)
	enc.Colors = colors
	if r.OptimizePalette {
		img = optimizePalette(img, colors)
		// already dithered
		enc.Dither = false
	}
	if err := enc.Encode(img); err != nil {
		return fmt.Errorf("failed to encode sixel: %w", err)
	}
	if buf.Len() == 0 {
		return fmt.Errorf("sixel encoding produced empty output")
	}
	return writeGraphics(w, next, buf.String())
}

func (r *SixelRenderer) Erase(w io.Writer, f Frame) error {
	return eraseRect(w, f)
}

func (r *SixelRenderer) Remove(w io.Writer, f Frame) error {
	return eraseRect(w, f)
}

// optimizePalette quantizes img to a median-cut palette with Stucki dithering
func optimizePalette(img image.Image, colors int) image.Image {
	palette := median.Quantizer(colors).Palette(img).ColorPalette()
	d := dither.NewDitherer(palette)
	d.Matrix = dither.Stucki
	return d.Dither(img)
}
