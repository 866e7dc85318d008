/*
Package ico decodes Windows icon (.ico) files.

Importing the package registers the "ico" format with the image package, so
image.Decode and image.DecodeConfig understand icon files. The entry with the
largest area is used; PNG compressed entries and uncompressed BMP entries are
supported.
*/
package ico

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
)

const (
	headerSize = 6
	entrySize  = 16
	maxEntries = 256
	bmpHeader  = 14
)

var (
	// ErrInvalid is returned for malformed icon headers
	ErrInvalid = errors.New("ico: invalid format")
	pngMagic   = []byte("\x89PNG\r\n\x1a\n")
)

func init() {
	image.RegisterFormat("ico", "\x00\x00\x01\x00", Decode, DecodeConfig)
}

// Entry is a single image described by the icon directory
type Entry struct {
	Width    int
	Height   int
	BitCount int
	Size     int
	Offset   int
}

func readDirectory(r io.Reader) ([]Entry, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if binary.LittleEndian.Uint16(hdr[0:2]) != 0 || binary.LittleEndian.Uint16(hdr[2:4]) != 1 {
		return nil, ErrInvalid
	}
	count := int(binary.LittleEndian.Uint16(hdr[4:6]))
	if count == 0 || count > maxEntries {
		return nil, fmt.Errorf("%w: %d entries", ErrInvalid, count)
	}

	entries := make([]Entry, 0, count)
	var raw [entrySize]byte
	for range count {
		if _, err := io.ReadFull(r, raw[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		e := Entry{
			Width:    int(raw[0]),
			Height:   int(raw[1]),
			BitCount: int(binary.LittleEndian.Uint16(raw[6:8])),
			Size:     int(binary.LittleEndian.Uint32(raw[8:12])),
			Offset:   int(binary.LittleEndian.Uint32(raw[12:16])),
		}
		// a zero byte means 256 pixels
		if e.Width == 0 {
			e.Width = 256
		}
		if e.Height == 0 {
			e.Height = 256
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// largest returns the entry with the biggest area, preferring deeper color
func largest(entries []Entry) Entry {
	best := entries[0]
	for _, e := range entries[1:] {
		area, bestArea := e.Width*e.Height, best.Width*best.Height
		if area > bestArea || (area == bestArea && e.BitCount > best.BitCount) {
			best = e
		}
	}
	return best
}

// DecodeConfig returns the dimensions of the largest icon without decoding pixels
func DecodeConfig(r io.Reader) (image.Config, error) {
	entries, err := readDirectory(r)
	if err != nil {
		return image.Config{}, err
	}
	e := largest(entries)
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      e.Width,
		Height:     e.Height,
	}, nil
}

// Decode decodes the largest image stored in the icon
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	entries, err := readDirectory(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	e := largest(entries)
	if e.Offset < headerSize+entrySize*len(entries) || e.Size <= 0 || e.Offset+e.Size > len(data) {
		return nil, fmt.Errorf("%w: entry out of range", ErrInvalid)
	}
	payload := data[e.Offset : e.Offset+e.Size]

	if bytes.HasPrefix(payload, pngMagic) {
		return png.Decode(bytes.NewReader(payload))
	}
	return decodeDIB(payload)
}

// decodeDIB decodes a headerless bitmap by prefixing a BITMAPFILEHEADER. Icon
// bitmaps store twice their height (color rows followed by the AND mask), so the
// height is halved to keep only the color rows.
func decodeDIB(dib []byte) (image.Image, error) {
	if len(dib) < 40 {
		return nil, fmt.Errorf("%w: short bitmap header", ErrInvalid)
	}
	headerLen := int(binary.LittleEndian.Uint32(dib[0:4]))
	if headerLen < 40 || headerLen > len(dib) {
		return nil, fmt.Errorf("%w: bitmap header size %d", ErrInvalid, headerLen)
	}
	fixed := make([]byte, len(dib))
	copy(fixed, dib)

	height := int32(binary.LittleEndian.Uint32(fixed[8:12]))
	binary.LittleEndian.PutUint32(fixed[8:12], uint32(height/2))

	bitCount := int(binary.LittleEndian.Uint16(fixed[14:16]))
	colorsUsed := int(binary.LittleEndian.Uint32(fixed[32:36]))
	if colorsUsed == 0 && bitCount <= 8 {
		colorsUsed = 1 << bitCount
	}
	pixelOffset := bmpHeader + headerLen + colorsUsed*4

	var file bytes.Buffer
	file.Grow(bmpHeader + len(fixed))
	file.WriteString("BM")
	binary.Write(&file, binary.LittleEndian, uint32(bmpHeader+len(fixed)))
	binary.Write(&file, binary.LittleEndian, uint32(0))
	binary.Write(&file, binary.LittleEndian, uint32(pixelOffset))
	file.Write(fixed)

	img, err := bmp.Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("ico: failed to decode bitmap entry: %w", err)
	}
	return img, nil
}
