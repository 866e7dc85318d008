package cimage

import (
	"errors"
	"fmt"
	"math"
)

// Box is a placement rectangle in character cells. X and Y may be negative.
type Box struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (b Box) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", b.X, b.Y, b.Width, b.Height)
}

// Scale returns the uniform scale that fits the natural size inside the pixel
// area, and the resulting scaled size.
func Scale(naturalWidth, naturalHeight, pixelWidth, pixelHeight int) (scale, scaledWidth, scaledHeight float64) {
	scale = math.Min(
		float64(pixelWidth)/float64(naturalWidth),
		float64(pixelHeight)/float64(naturalHeight),
	)
	return scale, float64(naturalWidth) * scale, float64(naturalHeight) * scale
}

// Fit computes the bounding box for an image of the given natural size. The
// image is centered in pixel space and the offset converted to cells, minus one.
// The box always spans every column and reaches the bottom row; the overlay's
// fit-contain scaler finishes the fit inside it.
func Fit(naturalWidth, naturalHeight int, g Geometry) (Box, error) {
	if naturalWidth <= 0 || naturalHeight <= 0 {
		return Box{}, &UnknownFormatError{
			Err: fmt.Errorf("invalid natural size %dx%d", naturalWidth, naturalHeight),
		}
	}
	if !g.Valid() {
		return Box{}, &TerminalQueryError{
			Op:  "placement",
			Err: errors.New("terminal geometry has no pixel size"),
		}
	}

	_, scaledW, scaledH := Scale(naturalWidth, naturalHeight, g.PixelWidth, g.PixelHeight)
	pixelX := (float64(g.PixelWidth) - scaledW) / 2
	pixelY := (float64(g.PixelHeight) - scaledH) / 2

	x := int(math.Floor(pixelX*g.HorizontalPixelRatio())) - 1
	y := int(math.Floor(pixelY*g.VerticalPixelRatio())) - 1
	return Box{
		X:      x,
		Y:      y,
		Width:  g.Columns,
		Height: g.Rows - y,
	}, nil
}

// FitEntry is Fit for a probed image
func FitEntry(e ImageEntry, g Geometry) (Box, error) {
	box, err := Fit(e.Width, e.Height, g)
	var ufe *UnknownFormatError
	if errors.As(err, &ufe) {
		ufe.Path = e.Path
	}
	return box, err
}
