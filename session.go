package cimage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
)

const (
	hideCursor = "\x1b[?25l"
	showCursor = "\x1b[?25h"
)

// State is the lifecycle state of a Session
type State int

const (
	Running State = iota
	Terminated
)

func (s State) String() string {
	if s == Terminated {
		return "terminated"
	}
	return "running"
}

// KeySource delivers keys without blocking
type KeySource interface {
	Poll() (key rune, ok bool, err error)
}

// GeometrySource reports the current terminal geometry
type GeometrySource interface {
	Geometry() (Geometry, error)
}

// Placement is the single overlay image the session drives
type Placement interface {
	Place(path string, x, y, width, height int) error
	Show() error
}

// ProgressStyle renders the [i/N] indicator
var ProgressStyle = lipgloss.NewStyle().Bold(true)

// SessionOptions wires a Session to its collaborators
type SessionOptions struct {
	Keys      KeySource
	Geometry  GeometrySource
	Placement Placement
	// Status receives cursor control sequences and the progress indicator
	Status   io.Writer
	Bindings KeyBindings
	// TickInterval is slept between ticks; zero busy-polls
	TickInterval time.Duration
	Logger       log.Interface
}

// Session is the interactive viewer loop. It owns the live placement box and
// the index of the image being shown.
type Session struct {
	opts    SessionOptions
	entries []ImageEntry

	current   int
	prevIndex int
	box       Box
	last      Box
	state     State
}

// NewSession creates a session over entries, which must not be empty
func NewSession(entries []ImageEntry, opts SessionOptions) (*Session, error) {
	if len(entries) == 0 {
		return nil, errors.WithStack(&NoImagesFoundError{})
	}
	if opts.Keys == nil || opts.Geometry == nil || opts.Placement == nil {
		return nil, errors.New("session requires a key source, a geometry source and a placement")
	}
	if opts.Status == nil {
		opts.Status = io.Discard
	}
	if opts.Bindings == nil {
		opts.Bindings = DefaultKeyBindings()
	}
	if opts.Logger == nil {
		opts.Logger = log.Log
	}
	return &Session{
		opts:      opts,
		entries:   entries,
		prevIndex: -1,
		state:     Running,
	}, nil
}

// Current is the index of the image being shown
func (s *Session) Current() int { return s.current }

// Box is the live placement box
func (s *Session) Box() Box { return s.box }

// State returns the lifecycle state
func (s *Session) State() State { return s.state }

// Entry returns the image being shown
func (s *Session) Entry() ImageEntry { return s.entries[s.current] }

// Run shows the first image and ticks until the session terminates or ctx is
// done. The cursor is hidden for the duration of the loop.
func (s *Session) Run(ctx context.Context) error {
	if s.state == Terminated {
		return nil
	}

	s.opts.Logger.WithField("images", len(s.entries)).Debug("starting session")

	io.WriteString(s.opts.Status, hideCursor)
	defer io.WriteString(s.opts.Status, showCursor)

	// the first tick computes the initial box and places the image
	if err := s.Tick(); err != nil {
		s.state = Terminated
		return err
	}
	if err := s.opts.Placement.Show(); err != nil {
		s.state = Terminated
		return errors.Wrap(err, "failed to show image")
	}

	var timer *time.Timer
	if s.opts.TickInterval > 0 {
		timer = time.NewTimer(s.opts.TickInterval)
		defer timer.Stop()
	}

	for s.state == Running {
		if timer != nil {
			select {
			case <-ctx.Done():
				s.state = Terminated
				return ctx.Err()
			case <-timer.C:
				timer.Reset(s.opts.TickInterval)
			}
		} else if err := ctx.Err(); err != nil {
			s.state = Terminated
			return err
		}

		if err := s.Tick(); err != nil {
			s.state = Terminated
			return err
		}
	}
	s.opts.Logger.Debug("session terminated")
	return nil
}

// Tick runs one iteration of the loop: poll a key, recompute the box, refresh the
// overlay if the fit changed and apply the key's command.
func (s *Session) Tick() error {
	if s.state == Terminated {
		return nil
	}

	key, ok, err := s.opts.Keys.Poll()
	if err != nil {
		s.state = Terminated
		return errors.Wrap(err, "failed to read key")
	}

	g, err := s.opts.Geometry.Geometry()
	if err != nil {
		s.state = Terminated
		return errors.WithStack(err)
	}
	entry := s.entries[s.current]
	computed, err := FitEntry(entry, g)
	if err != nil {
		s.state = Terminated
		return errors.WithStack(err)
	}

	if computed.Width != s.last.Width || computed.Height != s.last.Height || s.current != s.prevIndex {
		s.box = computed
		s.last = computed
		s.prevIndex = s.current
		if err := s.push(); err != nil {
			return err
		}
		fmt.Fprintf(s.opts.Status, "%s\r", ProgressStyle.Render(fmt.Sprintf("[%d/%d]", s.current+1, len(s.entries))))
	}

	if !ok {
		return nil
	}

	s.apply(s.opts.Bindings.Lookup(key), computed)
	if s.state == Terminated || s.current != s.prevIndex {
		// a new image is placed by the next tick
		return nil
	}
	return s.push()
}

func (s *Session) apply(cmd Command, computed Box) {
	n := len(s.entries)
	switch cmd {
	case MoveImageLeft:
		s.box.X--
	case MoveImageRight:
		s.box.X++
	case MoveImageUp:
		s.box.Y--
	case MoveImageDown:
		s.box.Y++
	case NextImage:
		s.current = (s.current + 1) % n
	case PreviousImage:
		s.current = (s.current - 1 + n) % n
	case ZoomIn:
		s.box.Width++
		s.box.Height++
	case ZoomOut:
		s.box.Width = max(s.box.Width-1, 1)
		s.box.Height = max(s.box.Height-1, 1)
	case Reset:
		s.box = computed
	case QuitProgram:
		s.state = Terminated
	}
	if cmd != NoCommand {
		s.opts.Logger.WithFields(log.Fields{
			"command": cmd,
			"box":     s.box,
			"image":   s.current,
		}).Debug("key")
	}
}

func (s *Session) push() error {
	b := s.box
	if err := s.opts.Placement.Place(s.entries[s.current].Path, b.X, b.Y, b.Width, b.Height); err != nil {
		s.state = Terminated
		return errors.Wrap(err, "failed to update placement")
	}
	return nil
}
