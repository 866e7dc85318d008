package overlay

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"slices"
	"strings"

	"github.com/blacktop/cimage/pkg/csi"
)

// iterm2ChunkSize is the payload size above which multipart upload is used
const iterm2ChunkSize = 0x40000

// ITerm2Renderer draws with the iTerm2 inline images protocol (OSC 1337)
type ITerm2Renderer struct{}

func (r *ITerm2Renderer) Protocol() Protocol {
	return ITerm2
}

func (r *ITerm2Renderer) Draw(w io.Writer, img image.Image, prev *Frame, next Frame) error {
	if prev != nil {
		if err := eraseRect(w, *prev); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	data := buf.Bytes()
	b := img.Bounds()
	params := strings.Join([]string{
		"inline=1",
		"doNotMoveCursor=1",
		fmt.Sprintf("size=%d", len(data)),
		fmt.Sprintf("width=%dpx", b.Dx()),
		fmt.Sprintf("height=%dpx", b.Dy()),
	}, ";")

	var out strings.Builder
	out.WriteString(saveCursor)
	out.WriteString(moveTo(next.Col, next.Row))
	if len(data) <= iterm2ChunkSize {
		out.WriteString(csi.WrapTmux(fmt.Sprintf("\x1b]1337;File=%s:%s\x07", params, base64.StdEncoding.EncodeToString(data))))
	} else {
		out.WriteString(csi.WrapTmux(fmt.Sprintf("\x1b]1337;MultipartFile=%s\x07", params)))
		for chunk := range slices.Chunk(data, iterm2ChunkSize) {
			out.WriteString(csi.WrapTmux(fmt.Sprintf("\x1b]1337;FilePart=%s\x07", base64.StdEncoding.EncodeToString(chunk))))
		}
		out.WriteString(csi.WrapTmux("\x1b]1337;FileEnd\x07"))
	}
	out.WriteString(restoreCursor)

	_, err := io.WriteString(w, out.String())
	return err
}

func (r *ITerm2Renderer) Erase(w io.Writer, f Frame) error {
	return eraseRect(w, f)
}

func (r *ITerm2Renderer) Remove(w io.Writer, f Frame) error {
	return eraseRect(w, f)
}
