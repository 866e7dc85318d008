package overlay

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/blacktop/cimage/pkg/csi"
)

// kittyChunkSize is the largest base64 payload per escape sequence
const kittyChunkSize = 4096

// KittyRenderer draws with the Kitty graphics protocol. Image data is sent once
// per scaled image; moving a placement only re-places it.
type KittyRenderer struct {
	Transfer Transfer
	// Compress sends zlib compressed RGBA instead of PNG (direct transfer only)
	Compress bool
}

func (r *KittyRenderer) Protocol() Protocol {
	return Kitty
}

func (r *KittyRenderer) Draw(w io.Writer, img image.Image, prev *Frame, next Frame) error {
	if prev == nil || prev.Key != next.Key || prev.ID != next.ID {
		if prev != nil && prev.ID != next.ID {
			if err := r.Remove(w, *prev); err != nil {
				return err
			}
		}
		if err := r.transmit(w, img, next.ID); err != nil {
			return err
		}
	}
	place := fmt.Sprintf("\x1b_Ga=p,i=%d,p=%d,z=%d,C=1,q=2\x1b\\", next.ID, next.PlacementID, next.ZIndex)
	return writeGraphics(w, next, place)
}

func (r *KittyRenderer) Erase(w io.Writer, f Frame) error {
	_, err := io.WriteString(w, csi.WrapTmux(fmt.Sprintf("\x1b_Ga=d,d=i,i=%d,p=%d,q=2\x1b\\", f.ID, f.PlacementID)))
	return err
}

func (r *KittyRenderer) Remove(w io.Writer, f Frame) error {
	_, err := io.WriteString(w, csi.WrapTmux(fmt.Sprintf("\x1b_Ga=d,d=I,i=%d,q=2\x1b\\", f.ID)))
	return err
}

func (r *KittyRenderer) transmit(w io.Writer, img image.Image, id uint32) error {
	switch {
	case r.Transfer == TempFile:
		path, err := writeTempPNG(img)
		if err != nil {
			return err
		}
		keys := fmt.Sprintf("a=t,t=t,f=100,i=%d,q=2", id)
		return writeChunked(w, keys, []byte(path))
	case r.Compress:
		b := img.Bounds()
		keys := fmt.Sprintf("a=t,f=32,o=z,s=%d,v=%d,i=%d,q=2", b.Dx(), b.Dy(), id)
		data, err := compressRGBA(img)
		if err != nil {
			return err
		}
		return writeChunked(w, keys, data)
	default:
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("failed to encode png: %w", err)
		}
		keys := fmt.Sprintf("a=t,f=100,i=%d,q=2", id)
		return writeChunked(w, keys, buf.Bytes())
	}
}

// writeChunked base64 encodes data and sends it in chunks; keys go on the first
func writeChunked(w io.Writer, keys string, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	var b strings.Builder
	for first := true; first || len(encoded) > 0; first = false {
		n := min(kittyChunkSize, len(encoded))
		chunk := encoded[:n]
		encoded = encoded[n:]

		more := 0
		if len(encoded) > 0 {
			more = 1
		}
		var seq string
		if first {
			seq = fmt.Sprintf("\x1b_G%s,m=%d;%s\x1b\\", keys, more, chunk)
		} else {
			seq = fmt.Sprintf("\x1b_Gm=%d;%s\x1b\\", more, chunk)
		}
		b.WriteString(csi.WrapTmux(seq))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func compressRGBA(img image.Image) ([]byte, error) {
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Stride != 4*nrgba.Rect.Dx() {
		b := img.Bounds()
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(nrgba.Pix); err != nil {
		return nil, fmt.Errorf("failed to compress image: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress image: %w", err)
	}
	return buf.Bytes(), nil
}

// writeTempPNG stores img in a file the terminal deletes after reading. Kitty
// only deletes files whose name contains tty-graphics-protocol.
func writeTempPNG(img image.Image) (string, error) {
	f, err := os.CreateTemp("", "tty-graphics-protocol-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	return f.Name(), nil
}
