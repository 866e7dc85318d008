package overlay

import (
	"image"
	"io"
	"strings"

	"github.com/charmbracelet/x/mosaic"
)

// HalfblocksRenderer draws with Unicode half block characters, two pixels per
// cell. It works on any true color terminal.
type HalfblocksRenderer struct {
	Dither bool
}

func (r *HalfblocksRenderer) Protocol() Protocol {
	return Halfblocks
}

func (r *HalfblocksRenderer) Draw(w io.Writer, img image.Image, prev *Frame, next Frame) error {
	if prev != nil {
		if err := eraseRect(w, *prev); err != nil {
			return err
		}
	}

	m := mosaic.New().Width(next.Cols).Height(next.Rows).Dither(r.Dither)
	rendered := strings.TrimRight(m.Render(img), "\n")

	var b strings.Builder
	b.WriteString(saveCursor)
	for i, line := range strings.Split(rendered, "\n") {
		b.WriteString(moveTo(next.Col, next.Row+i))
		b.WriteString(line)
	}
	b.WriteString("\x1b[0m")
	b.WriteString(restoreCursor)

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *HalfblocksRenderer) Erase(w io.Writer, f Frame) error {
	return eraseRect(w, f)
}

func (r *HalfblocksRenderer) Remove(w io.Writer, f Frame) error {
	return eraseRect(w, f)
}
