package cimage

import (
	"fmt"
	"image"
	"os"

	// header decoders used by Probe
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	_ "github.com/blacktop/cimage/pkg/ico"
)

// ImageEntry is a displayable image and its natural size in pixels
type ImageEntry struct {
	Path   string
	Width  int
	Height int
}

// Probe reads the image header at path and returns its pixel dimensions.
// The pixel data itself is never decoded.
func Probe(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, &UnknownFormatError{Path: path, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, &UnknownFormatError{
			Path: path,
			Err:  fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height),
		}
	}
	return cfg.Width, cfg.Height, nil
}

// ProbeEntry probes path and returns it as an ImageEntry
func ProbeEntry(path string) (ImageEntry, error) {
	w, h, err := Probe(path)
	if err != nil {
		return ImageEntry{}, err
	}
	return ImageEntry{Path: path, Width: w, Height: h}, nil
}
