package overlay

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"image"
	"io"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noTmux(t *testing.T) {
	t.Helper()
	t.Setenv("TMUX", "")
	t.Setenv("TERM_PROGRAM", "")
}

var kittyPayload = regexp.MustCompile(`\x1b_G([^;]*);([^\x1b]*)\x1b\\`)

func TestNewRenderer(t *testing.T) {
	tests := []struct {
		protocol Protocol
		wantErr  bool
	}{
		{Kitty, false},
		{Sixel, false},
		{ITerm2, false},
		{Halfblocks, false},
		{Auto, true},
	}

	for _, tt := range tests {
		t.Run(tt.protocol.String(), func(t *testing.T) {
			r, err := NewRenderer(tt.protocol)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.protocol, r.Protocol())
		})
	}

	r, err := NewRenderer(Kitty, WithKittyTransfer(TempFile, true))
	require.NoError(t, err)
	assert.Equal(t, &KittyRenderer{Transfer: TempFile, Compress: true}, r)

	r, err = NewRenderer(Sixel, WithSixelPalette(64, true))
	require.NoError(t, err)
	assert.Equal(t, &SixelRenderer{Colors: 64, OptimizePalette: true}, r)
}

func TestKittyChunking(t *testing.T) {
	noTmux(t)

	data := bytes.Repeat([]byte{0xAB}, 10000)

	var out bytes.Buffer
	require.NoError(t, writeChunked(&out, "a=t,f=100,i=7,q=2", data))

	matches := kittyPayload.FindAllStringSubmatch(out.String(), -1)
	require.Len(t, matches, 4, "13336 base64 bytes in 4096 byte chunks")
	assert.Equal(t, "a=t,f=100,i=7,q=2,m=1", matches[0][1])
	assert.Equal(t, "m=1", matches[1][1])
	assert.Equal(t, "m=1", matches[2][1])
	assert.Equal(t, "m=0", matches[3][1])

	var joined strings.Builder
	for _, m := range matches {
		assert.LessOrEqual(t, len(m[2]), kittyChunkSize)
		joined.WriteString(m[2])
	}
	decoded, err := base64.StdEncoding.DecodeString(joined.String())
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestKittyDraw(t *testing.T) {
	noTmux(t)

	r := &KittyRenderer{}
	img := createTestImage(8, 8)
	f := Frame{Col: 4, Row: 2, Cols: 2, Rows: 1, ID: 9, PlacementID: 1, ZIndex: -1, Key: "a"}

	var out bytes.Buffer
	require.NoError(t, r.Draw(&out, img, nil, f))
	assert.Contains(t, out.String(), "a=t,f=100,i=9,q=2")
	assert.Contains(t, out.String(), "\x1b7\x1b[3;5H\x1b_Ga=p,i=9,p=1,z=-1,C=1,q=2\x1b\\\x1b8")

	// same image moved: no transmission
	out.Reset()
	moved := f
	moved.Col = 5
	require.NoError(t, r.Draw(&out, img, &f, moved))
	assert.NotContains(t, out.String(), "a=t")
	assert.Contains(t, out.String(), "\x1b[3;6H")

	out.Reset()
	require.NoError(t, r.Erase(&out, moved))
	assert.Equal(t, "\x1b_Ga=d,d=i,i=9,p=1,q=2\x1b\\", out.String())
}

func TestKittyCompressed(t *testing.T) {
	noTmux(t)

	r := &KittyRenderer{Compress: true}
	img := createTestImage(3, 2)

	var out bytes.Buffer
	require.NoError(t, r.Draw(&out, img, nil, Frame{ID: 1, PlacementID: 1, Key: "k"}))

	m := kittyPayload.FindStringSubmatch(out.String())
	require.NotNil(t, m)
	assert.Equal(t, "a=t,f=32,o=z,s=3,v=2,i=1,q=2,m=0", m[1])

	raw, err := base64.StdEncoding.DecodeString(m[2])
	require.NoError(t, err)
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	require.NoError(t, err)
	pix, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Len(t, pix, 3*2*4)
}

func TestKittyTempFile(t *testing.T) {
	noTmux(t)
	t.Setenv("TMPDIR", t.TempDir())

	r := &KittyRenderer{Transfer: TempFile}
	var out bytes.Buffer
	require.NoError(t, r.Draw(&out, createTestImage(2, 2), nil, Frame{ID: 3, PlacementID: 1, Key: "k"}))

	m := kittyPayload.FindStringSubmatch(out.String())
	require.NotNil(t, m)
	assert.Equal(t, "a=t,t=t,f=100,i=3,q=2,m=0", m[1])

	path, err := base64.StdEncoding.DecodeString(m[2])
	require.NoError(t, err)
	assert.Contains(t, string(path), "tty-graphics-protocol")
	_, err = os.Stat(string(path))
	assert.NoError(t, err)
}

func TestKittyTmuxWrapping(t *testing.T) {
	t.Setenv("TMUX", "/tmp/tmux-1000/default,1,0")

	var out bytes.Buffer
	require.NoError(t, (&KittyRenderer{}).Remove(&out, Frame{ID: 2}))
	assert.Equal(t, "\x1bPtmux;\x1b\x1b_Ga=d,d=I,i=2,q=2\x1b\x1b\\\x1b\\", out.String())
}

func TestEraseRect(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, eraseRect(&out, Frame{Col: 1, Row: 2, Cols: 5, Rows: 2}))
	assert.Equal(t, "\x1b7\x1b[3;2H\x1b[5X\x1b[4;2H\x1b[5X\x1b8", out.String())

	out.Reset()
	require.NoError(t, eraseRect(&out, Frame{}))
	assert.Empty(t, out.String())
}

func TestSixelDraw(t *testing.T) {
	noTmux(t)

	tests := []struct {
		name     string
		renderer *SixelRenderer
	}{
		{name: "default palette", renderer: &SixelRenderer{}},
		{name: "optimized palette", renderer: &SixelRenderer{Colors: 16, OptimizePalette: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := Frame{Col: 0, Row: 0, Cols: 3, Rows: 1}
			next := Frame{Col: 2, Row: 1, Cols: 3, Rows: 1}

			var out bytes.Buffer
			require.NoError(t, tt.renderer.Draw(&out, createTestImage(12, 12), &prev, next))
			s := out.String()

			// previous rectangle erased before the new image
			erase := strings.Index(s, "\x1b[1;1H\x1b[3X")
			draw := strings.Index(s, "\x1b[2;3H\x1bP")
			require.GreaterOrEqual(t, erase, 0)
			require.Greater(t, draw, erase)
			assert.Equal(t, 1, strings.Count(s, "\x1bP"), "sixel data is not wrapped twice")
		})
	}
}

func TestITerm2Draw(t *testing.T) {
	noTmux(t)

	var out bytes.Buffer
	require.NoError(t, (&ITerm2Renderer{}).Draw(&out, createTestImage(10, 5), nil, Frame{Col: 1, Row: 1}))
	s := out.String()
	assert.True(t, strings.HasPrefix(s, "\x1b7\x1b[2;2H\x1b]1337;File=inline=1;doNotMoveCursor=1;size="))
	assert.Contains(t, s, "width=10px;height=5px:")
	assert.True(t, strings.HasSuffix(s, "\x07\x1b8"))
}

func TestITerm2Multipart(t *testing.T) {
	noTmux(t)

	// noise does not compress, so the PNG is larger than one part
	img := image.NewNRGBA(image.Rect(0, 0, 400, 400))
	seed := uint32(1)
	for i := range img.Pix {
		seed = seed*1664525 + 1013904223
		img.Pix[i] = byte(seed >> 24)
	}

	var out bytes.Buffer
	require.NoError(t, (&ITerm2Renderer{}).Draw(&out, img, nil, Frame{}))
	s := out.String()
	assert.Contains(t, s, "\x1b]1337;MultipartFile=inline=1")
	assert.GreaterOrEqual(t, strings.Count(s, "\x1b]1337;FilePart="), 2)
	assert.Contains(t, s, "\x1b]1337;FileEnd\x07")
}

func TestHalfblocksDraw(t *testing.T) {
	var out bytes.Buffer
	f := Frame{Col: 3, Row: 4, Cols: 4, Rows: 2}
	require.NoError(t, (&HalfblocksRenderer{}).Draw(&out, createTestImage(4, 4), nil, f))
	s := out.String()
	assert.Contains(t, s, "\x1b[5;4H")
	assert.True(t, strings.HasPrefix(s, saveCursor))
	assert.True(t, strings.HasSuffix(s, restoreCursor))
}
