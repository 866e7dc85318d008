package overlay

import (
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/blacktop/cimage/pkg/csi"
)

const (
	saveCursor    = "\x1b7"
	restoreCursor = "\x1b8"
)

// Frame is where a placement was, or will be, drawn. Col and Row are zero
// based; Cols and Rows cover the scaled image.
type Frame struct {
	Col         int
	Row         int
	Cols        int
	Rows        int
	PixelWidth  int
	PixelHeight int

	// Kitty image and placement ids
	ID          uint32
	PlacementID uint32
	ZIndex      int

	// Key identifies the scaled pixels; the same key means the same image data
	Key string
}

// Renderer draws frames with one terminal graphics protocol
type Renderer interface {
	Protocol() Protocol
	// Draw shows img, already scaled to next's pixel size. prev is the frame
	// currently on screen, if any.
	Draw(w io.Writer, img image.Image, prev *Frame, next Frame) error
	// Erase hides a drawn frame but may keep its image data
	Erase(w io.Writer, f Frame) error
	// Remove erases a frame and releases its image data
	Remove(w io.Writer, f Frame) error
}

// NewRenderer returns the renderer for p; Auto is not a renderer
func NewRenderer(p Protocol, opts ...RendererOption) (Renderer, error) {
	var cfg rendererConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	switch p {
	case Kitty:
		return &KittyRenderer{Transfer: cfg.transfer, Compress: cfg.compress}, nil
	case Sixel:
		return &SixelRenderer{Colors: cfg.sixelColors, OptimizePalette: cfg.sixelOptimize}, nil
	case ITerm2:
		return &ITerm2Renderer{}, nil
	case Halfblocks:
		return &HalfblocksRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", p)
	}
}

type rendererConfig struct {
	transfer      Transfer
	compress      bool
	sixelColors   int
	sixelOptimize bool
}

// RendererOption configures NewRenderer
type RendererOption func(*rendererConfig)

// WithKittyTransfer selects how Kitty image data is sent
func WithKittyTransfer(t Transfer, compress bool) RendererOption {
	return func(c *rendererConfig) {
		c.transfer = t
		c.compress = compress
	}
}

// WithSixelPalette sets the Sixel palette size and median-cut optimization
func WithSixelPalette(colors int, optimize bool) RendererOption {
	return func(c *rendererConfig) {
		c.sixelColors = colors
		c.sixelOptimize = optimize
	}
}

// moveTo positions the cursor at a zero based cell
func moveTo(col, row int) string {
	return fmt.Sprintf("\x1b[%d;%dH", row+1, col+1)
}

// eraseRect blanks the cells under f using ECH on every row
func eraseRect(w io.Writer, f Frame) error {
	if f.Cols <= 0 || f.Rows <= 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(saveCursor)
	for r := range f.Rows {
		b.WriteString(moveTo(f.Col, f.Row+r))
		fmt.Fprintf(&b, "\x1b[%dX", f.Cols)
	}
	b.WriteString(restoreCursor)
	_, err := io.WriteString(w, b.String())
	return err
}

// writeGraphics writes a graphics sequence at the frame origin, wrapped for tmux
func writeGraphics(w io.Writer, f Frame, seq string) error {
	_, err := io.WriteString(w, saveCursor+moveTo(f.Col, f.Row)+csi.WrapTmux(seq)+restoreCursor)
	return err
}
