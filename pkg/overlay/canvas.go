/*
Package overlay draws named image placements on a terminal.

A Canvas owns a set of placements, each describing an image file and a box in
character cells. Placements are mutated in place; every mutation redraws the
placement right away when, and only when, what is on screen would change. The
pixels reach the terminal through a Renderer: Kitty graphics, Sixel, iTerm2
inline images or Unicode halfblocks.

	canvas := overlay.NewCanvas(tty, overlay.WithRenderer(r))
	defer canvas.Close()

	p, err := canvas.CreatePlacement("viewer", overlay.PlacementOptions{
	    Path:   "cat.png",
	    Width:  80,
	    Height: 24,
	    Scaler: overlay.FitContain,
	})
	err = p.Show()
	err = p.Place("cat.png", 2, 1, 80, 24)
*/
package overlay

import (
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/apex/log"
)

// Canvas manages the placements drawn on one terminal
type Canvas struct {
	mu         sync.Mutex
	out        io.Writer
	renderer   Renderer
	cellSize   func() (width, height int)
	load       Loader
	sources    *scaleCache
	scaled     *scaleCache
	placements map[string]*Placement
	nextID     uint32
	logger     log.Interface
}

// Option configures a Canvas
type Option func(*Canvas)

// WithRenderer sets the protocol renderer; the default is halfblocks
func WithRenderer(r Renderer) Option {
	return func(c *Canvas) {
		c.renderer = r
	}
}

// WithCellSize sets the function reporting the cell size in pixels
func WithCellSize(fn func() (width, height int)) Option {
	return func(c *Canvas) {
		c.cellSize = fn
	}
}

// WithLoader replaces the image file decoder
func WithLoader(l Loader) Option {
	return func(c *Canvas) {
		c.load = l
	}
}

// WithIDBase sets the first Kitty image id handed out
func WithIDBase(id uint32) Option {
	return func(c *Canvas) {
		c.nextID = id
	}
}

// WithCacheSize sets how many scaled images are kept
func WithCacheSize(n int) Option {
	return func(c *Canvas) {
		c.scaled = newScaleCache(n)
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(l log.Interface) Option {
	return func(c *Canvas) {
		c.logger = l
	}
}

// NewCanvas creates a canvas drawing to out
func NewCanvas(out io.Writer, opts ...Option) *Canvas {
	c := &Canvas{
		out:        out,
		renderer:   &HalfblocksRenderer{},
		cellSize:   FallbackCellSize,
		load:       LoadFile,
		sources:    newScaleCache(4),
		scaled:     newScaleCache(DefaultCacheSize),
		placements: make(map[string]*Placement),
		nextID:     1,
		logger:     log.Log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Renderer returns the renderer in use
func (c *Canvas) Renderer() Renderer {
	return c.renderer
}

// CreatePlacement adds a named placement and draws it if visible
func (c *Canvas) CreatePlacement(name string, opts PlacementOptions) (*Placement, error) {
	c.mu.Lock()
	if _, exists := c.placements[name]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("placement %q already exists", name)
	}
	p := &Placement{
		canvas:      c,
		name:        name,
		id:          c.nextID,
		placementID: 1,
	}
	c.nextID++
	c.placements[name] = p
	c.mu.Unlock()

	if err := p.Update(opts); err != nil {
		return p, err
	}
	return p, nil
}

// Close removes every placement from the terminal
func (c *Canvas) Close() error {
	c.mu.Lock()
	placements := make([]*Placement, 0, len(c.placements))
	for _, p := range c.placements {
		placements = append(placements, p)
	}
	c.mu.Unlock()

	var firstErr error
	for _, p := range placements {
		if err := p.Remove(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Canvas) source(path string) (image.Image, error) {
	if img, ok := c.sources.get(path); ok {
		return img, nil
	}
	img, err := c.load(path)
	if err != nil {
		return nil, err
	}
	c.sources.set(path, img)
	return img, nil
}

// frameFor computes where opts puts the image, or false when nothing is visible
func (c *Canvas) frameFor(p *Placement, src image.Image) (Frame, int, int, bool) {
	opts := p.opts
	cw, ch := c.cellSize()
	if cw <= 0 || ch <= 0 {
		cw, ch = FallbackCellSize()
	}

	// clip the box to the top-left corner of the screen
	col, row := max(opts.X, 0), max(opts.Y, 0)
	cols := opts.Width - (col - opts.X)
	rows := opts.Height - (row - opts.Y)
	if cols <= 0 || rows <= 0 {
		return Frame{}, 0, 0, false
	}
	boxW, boxH := cols*cw, rows*ch

	b := src.Bounds()
	w, h := opts.Scaler.Size(b.Dx(), b.Dy(), boxW, boxH)
	if w == 0 || h == 0 {
		return Frame{}, 0, 0, false
	}
	return Frame{
		Col:         col,
		Row:         row,
		Cols:        min((w+cw-1)/cw, cols),
		Rows:        min((h+ch-1)/ch, rows),
		PixelWidth:  w,
		PixelHeight: h,
		ID:          p.id,
		PlacementID: p.placementID,
		ZIndex:      opts.ZIndex,
		Key:         cacheKey(opts.Path, w, h, opts.Scaler),
	}, boxW, boxH, true
}

// refresh brings the terminal in line with p's options. Callers hold p.mu.
func (c *Canvas) refresh(p *Placement) error {
	if p.opts.Visibility != Visible || p.opts.Path == "" {
		return c.erase(p)
	}

	src, err := c.source(p.opts.Path)
	if err != nil {
		return err
	}
	next, boxW, boxH, ok := c.frameFor(p, src)
	if !ok {
		return c.erase(p)
	}
	if p.drawn != nil && *p.drawn == next {
		return nil
	}

	img, ok := c.scaled.get(next.Key)
	if !ok {
		img = scaleImage(src, p.opts.Scaler, boxW, boxH)
		c.scaled.set(next.Key, img)
	}

	c.logger.WithFields(log.Fields{
		"placement": p.name,
		"protocol":  c.renderer.Protocol(),
		"col":       next.Col,
		"row":       next.Row,
		"cols":      next.Cols,
		"rows":      next.Rows,
	}).Debug("draw")

	if err := c.renderer.Draw(c.out, img, p.drawn, next); err != nil {
		return fmt.Errorf("failed to draw placement %q: %w", p.name, err)
	}
	p.drawn = &next
	return nil
}

func (c *Canvas) erase(p *Placement) error {
	if p.drawn == nil {
		return nil
	}
	err := c.renderer.Erase(c.out, *p.drawn)
	p.drawn = nil
	return err
}

func (c *Canvas) remove(p *Placement) error {
	c.mu.Lock()
	delete(c.placements, p.name)
	c.mu.Unlock()

	if p.drawn == nil {
		return nil
	}
	err := c.renderer.Remove(c.out, *p.drawn)
	p.drawn = nil
	return err
}
