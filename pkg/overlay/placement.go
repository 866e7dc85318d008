package overlay

import (
	"errors"
	"sync"
)

// ErrRemoved is returned when mutating a placement after Remove
var ErrRemoved = errors.New("placement was removed")

// Visibility of a placement
type Visibility int

const (
	Invisible Visibility = iota
	Visible
)

// PlacementOptions describe a placement. X, Y, Width and Height are in
// character cells; X and Y may be negative, the box is clipped at the edge.
type PlacementOptions struct {
	Path       string
	X          int
	Y          int
	Width      int
	Height     int
	Scaler     Scaler
	Visibility Visibility
	ZIndex     int
}

// Placement is a named image on a Canvas
type Placement struct {
	canvas      *Canvas
	name        string
	id          uint32
	placementID uint32

	mu      sync.Mutex
	opts    PlacementOptions
	drawn   *Frame
	removed bool
}

// Name returns the placement name
func (p *Placement) Name() string { return p.name }

// Options returns the current options
func (p *Placement) Options() PlacementOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts
}

// Frame returns the frame on screen, if any
func (p *Placement) Frame() (Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn == nil {
		return Frame{}, false
	}
	return *p.drawn, true
}

// Update replaces all options and redraws if anything changed
func (p *Placement) Update(opts PlacementOptions) error {
	return p.mutate(func(o *PlacementOptions) { *o = opts })
}

// Place moves and resizes the placement and sets its image
func (p *Placement) Place(path string, x, y, width, height int) error {
	return p.mutate(func(o *PlacementOptions) {
		o.Path = path
		o.X, o.Y = x, y
		o.Width, o.Height = width, height
	})
}

// Show makes the placement visible
func (p *Placement) Show() error {
	return p.mutate(func(o *PlacementOptions) { o.Visibility = Visible })
}

// Hide erases the placement but keeps its options
func (p *Placement) Hide() error {
	return p.mutate(func(o *PlacementOptions) { o.Visibility = Invisible })
}

// Remove erases the placement and drops it from the canvas
func (p *Placement) Remove() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.removed {
		return nil
	}
	p.removed = true
	return p.canvas.remove(p)
}

func (p *Placement) mutate(fn func(*PlacementOptions)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.removed {
		return ErrRemoved
	}

	before := p.opts
	fn(&p.opts)
	if p.opts == before && (p.drawn != nil || p.opts.Visibility != Visible) {
		return nil
	}
	return p.canvas.refresh(p)
}
