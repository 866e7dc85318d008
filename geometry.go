package cimage

import (
	"errors"
	"fmt"
	"sync"
)

// Geometry is a snapshot of the terminal character grid and its size in pixels
type Geometry struct {
	Rows        int
	Columns     int
	PixelWidth  int
	PixelHeight int
}

// VerticalPixelRatio is the number of rows per pixel
func (g Geometry) VerticalPixelRatio() float64 {
	if g.PixelHeight == 0 {
		return 0
	}
	return float64(g.Rows) / float64(g.PixelHeight)
}

// HorizontalPixelRatio is the number of columns per pixel
func (g Geometry) HorizontalPixelRatio() float64 {
	if g.PixelWidth == 0 {
		return 0
	}
	return float64(g.Columns) / float64(g.PixelWidth)
}

// CellSize returns the size of one character cell in pixels
func (g Geometry) CellSize() (width, height float64) {
	if g.Columns == 0 || g.Rows == 0 {
		return 0, 0
	}
	return float64(g.PixelWidth) / float64(g.Columns), float64(g.PixelHeight) / float64(g.Rows)
}

// Valid reports whether the snapshot can be used for placement
func (g Geometry) Valid() bool {
	return g.Rows > 0 && g.Columns > 0 && g.PixelWidth > 0 && g.PixelHeight > 0
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d cells, %dx%d px", g.Columns, g.Rows, g.PixelWidth, g.PixelHeight)
}

// PixelSizeFunc reports a size in pixels, e.g. of a character cell
type PixelSizeFunc func() (width, height int, err error)

// GeometryReader reads the geometry of a terminal file descriptor
type GeometryReader struct {
	fd       int
	cellSize PixelSizeFunc
	textArea PixelSizeFunc

	once  sync.Once
	cellW int
	cellH int
	err   error
}

// GeometryOption configures a GeometryReader
type GeometryOption func(*GeometryReader)

// WithCellSizeQuery sets the fallback used when the terminal reports no pixel size.
// It is called at most once.
func WithCellSizeQuery(fn PixelSizeFunc) GeometryOption {
	return func(r *GeometryReader) {
		r.cellSize = fn
	}
}

// WithTextAreaQuery sets a second fallback reporting the whole text area in
// pixels, used when the cell size query fails
func WithTextAreaQuery(fn PixelSizeFunc) GeometryOption {
	return func(r *GeometryReader) {
		r.textArea = fn
	}
}

// NewGeometryReader creates a reader for the terminal open on fd
func NewGeometryReader(fd int, opts ...GeometryOption) *GeometryReader {
	r := &GeometryReader{fd: fd}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Geometry queries the terminal with TIOCGWINSZ
func (r *GeometryReader) Geometry() (Geometry, error) {
	g, err := winsize(r.fd)
	if err != nil {
		return Geometry{}, &TerminalQueryError{Op: "TIOCGWINSZ", Err: err}
	}
	if g.Rows == 0 || g.Columns == 0 {
		return Geometry{}, &TerminalQueryError{
			Op:  "TIOCGWINSZ",
			Err: errors.New("terminal reported an empty character grid"),
		}
	}

	if g.PixelWidth == 0 || g.PixelHeight == 0 {
		w, h, err := r.fallbackCellSize(g.Columns, g.Rows)
		if err != nil {
			return Geometry{}, &TerminalQueryError{Op: "cell size", Err: err}
		}
		g.PixelWidth = g.Columns * w
		g.PixelHeight = g.Rows * h
	}
	return g, nil
}

// fallbackCellSize asks the cell size query, then divides the text area by the
// grid. The outcome is remembered.
func (r *GeometryReader) fallbackCellSize(cols, rows int) (int, int, error) {
	r.once.Do(func() {
		if r.cellSize == nil && r.textArea == nil {
			r.err = errors.New("terminal reported no pixel size")
			return
		}
		if r.cellSize != nil {
			r.cellW, r.cellH, r.err = validCellSize(r.cellSize())
			if r.err == nil || r.textArea == nil {
				return
			}
		}
		w, h, err := r.textArea()
		if err != nil {
			if r.err != nil {
				err = fmt.Errorf("%v; text area: %w", r.err, err)
			}
			r.err = err
			return
		}
		r.cellW, r.cellH, r.err = validCellSize(w/cols, h/rows, nil)
	})
	return r.cellW, r.cellH, r.err
}

func validCellSize(w, h int, err error) (int, int, error) {
	if err != nil {
		return 0, 0, err
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid cell size %dx%d", w, h)
	}
	return w, h, nil
}
