package overlay

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"strings"
	"sync"

	"github.com/nfnt/resize"
)

// Scaler decides how an image fills its placement box
type Scaler int

const (
	// FitContain scales up or down to fit the box, preserving aspect ratio
	FitContain Scaler = iota
	// Contain only scales down to fit the box, preserving aspect ratio
	Contain
	// Cover fills the box, preserving aspect ratio and cropping the center
	Cover
	// Distort stretches the image to the box
	Distort
)

var scalerNames = []string{"fit_contain", "contain", "cover", "distort"}

func (s Scaler) String() string {
	if s < 0 || int(s) >= len(scalerNames) {
		return fmt.Sprintf("scaler(%d)", int(s))
	}
	return scalerNames[s]
}

// ParseScaler parses a scaler name such as "fit_contain"
func ParseScaler(name string) (Scaler, error) {
	for i, n := range scalerNames {
		if strings.EqualFold(n, name) {
			return Scaler(i), nil
		}
	}
	return FitContain, fmt.Errorf("unknown scaler %q (want one of %s)", name, strings.Join(scalerNames, ", "))
}

// Size returns the pixel size an image of srcW x srcH takes inside a box of
// boxW x boxH. Cover and Distort always fill the box.
func (s Scaler) Size(srcW, srcH, boxW, boxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 || boxW <= 0 || boxH <= 0 {
		return 0, 0
	}
	ratio := math.Min(float64(boxW)/float64(srcW), float64(boxH)/float64(srcH))
	switch s {
	case Contain:
		ratio = math.Min(ratio, 1)
	case Cover, Distort:
		return boxW, boxH
	}
	w := max(int(float64(srcW)*ratio), 1)
	h := max(int(float64(srcH)*ratio), 1)
	return w, h
}

// DefaultCacheSize is the number of scaled images kept by a Canvas
const DefaultCacheSize = 32

// scaleCache holds scaled images, evicting the least recently used
type scaleCache struct {
	mu      sync.Mutex
	entries map[string]image.Image
	order   []string // most recent first
	maxSize int
}

func newScaleCache(size int) *scaleCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &scaleCache{
		entries: make(map[string]image.Image),
		maxSize: size,
	}
}

func cacheKey(path string, w, h int, s Scaler) string {
	return fmt.Sprintf("%s|%dx%d|%s", path, w, h, s)
}

func (c *scaleCache) get(key string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	img, ok := c.entries[key]
	if ok {
		c.touch(key)
	}
	return img, ok
}

func (c *scaleCache) set(key string, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = img
		c.touch(key)
		return
	}
	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		lru := c.order[len(c.order)-1]
		c.order = c.order[:len(c.order)-1]
		delete(c.entries, lru)
	}
	c.entries[key] = img
	c.order = append([]string{key}, c.order...)
}

// touch moves key to the front; callers hold mu
func (c *scaleCache) touch(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append([]string{key}, c.order...)
}

func (c *scaleCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// scaleImage resizes src for a box of boxW x boxH pixels using s
func scaleImage(src image.Image, s Scaler, boxW, boxH int) image.Image {
	b := src.Bounds()
	if s == Cover {
		ratio := math.Max(float64(boxW)/float64(b.Dx()), float64(boxH)/float64(b.Dy()))
		w := max(int(math.Ceil(float64(b.Dx())*ratio)), boxW)
		h := max(int(math.Ceil(float64(b.Dy())*ratio)), boxH)
		return cropCenter(resizeTo(src, w, h), boxW, boxH)
	}
	w, h := s.Size(b.Dx(), b.Dy(), boxW, boxH)
	return resizeTo(src, w, h)
}

func resizeTo(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return src
	}
	interp := resize.NearestNeighbor
	// bilinear is worth it when shrinking a lot
	if b.Dx()*b.Dy() > w*h*4 {
		interp = resize.Bilinear
	}
	return resize.Resize(uint(w), uint(h), src, interp)
}

// cropCenter cuts a w x h rectangle out of the middle of img
func cropCenter(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if w >= b.Dx() && h >= b.Dy() {
		return img
	}
	w, h = min(w, b.Dx()), min(h, b.Dy())
	offX := (b.Dx() - w) / 2
	offY := (b.Dy() - h) / 2

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), img, image.Pt(b.Min.X+offX, b.Min.Y+offY), draw.Src)
	return out
}
