package cimage

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKeys struct {
	keys []rune
	err  error
}

func (f *fakeKeys) Poll() (rune, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	if len(f.keys) == 0 {
		return 0, false, nil
	}
	k := f.keys[0]
	f.keys = f.keys[1:]
	return k, true, nil
}

func (f *fakeKeys) push(keys ...rune) {
	f.keys = append(f.keys, keys...)
}

type fakeGeometry struct {
	g   Geometry
	err error
}

func (f *fakeGeometry) Geometry() (Geometry, error) {
	return f.g, f.err
}

type placeCall struct {
	Path string
	Box  Box
}

type fakePlacement struct {
	calls []placeCall
	shown bool
	err   error
}

func (f *fakePlacement) Place(path string, x, y, width, height int) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, placeCall{Path: path, Box: Box{X: x, Y: y, Width: width, Height: height}})
	return nil
}

func (f *fakePlacement) Show() error {
	f.shown = true
	return nil
}

func (f *fakePlacement) last() placeCall {
	return f.calls[len(f.calls)-1]
}

var testGeometry = Geometry{Rows: 40, Columns: 100, PixelWidth: 1000, PixelHeight: 500}

func testEntries(n int) []ImageEntry {
	entries := make([]ImageEntry, n)
	for i := range entries {
		entries[i] = ImageEntry{Path: string(rune('a'+i)) + ".png", Width: 800, Height: 400}
	}
	return entries
}

type sessionFixture struct {
	keys      *fakeKeys
	geometry  *fakeGeometry
	placement *fakePlacement
	status    *bytes.Buffer
	session   *Session
}

func newSessionFixture(t *testing.T, n int) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		keys:      &fakeKeys{},
		geometry:  &fakeGeometry{g: testGeometry},
		placement: &fakePlacement{},
		status:    &bytes.Buffer{},
	}
	s, err := NewSession(testEntries(n), SessionOptions{
		Keys:      f.keys,
		Geometry:  f.geometry,
		Placement: f.placement,
		Status:    f.status,
	})
	require.NoError(t, err)
	f.session = s
	return f
}

func (f *sessionFixture) press(t *testing.T, keys ...rune) {
	t.Helper()
	for _, k := range keys {
		f.keys.push(k)
		require.NoError(t, f.session.Tick())
	}
}

func TestNewSessionRequiresEntries(t *testing.T) {
	_, err := NewSession(nil, SessionOptions{})
	var nife *NoImagesFoundError
	assert.ErrorAs(t, err, &nife)
}

func TestSessionFirstTick(t *testing.T) {
	f := newSessionFixture(t, 3)

	require.NoError(t, f.session.Tick())
	require.Len(t, f.placement.calls, 1)
	assert.Equal(t, placeCall{Path: "a.png", Box: Box{X: -1, Y: -1, Width: 100, Height: 41}}, f.placement.last())
	assert.Contains(t, f.status.String(), "[1/3]")

	// nothing changed, nothing printed
	f.status.Reset()
	require.NoError(t, f.session.Tick())
	assert.Empty(t, f.status.String())
}

func TestSessionIndexWraparound(t *testing.T) {
	const n = 4
	f := newSessionFixture(t, n)
	require.NoError(t, f.session.Tick())

	for range n {
		f.press(t, 'n')
	}
	assert.Equal(t, 0, f.session.Current())

	f.press(t, 'n', 'p')
	assert.Equal(t, 0, f.session.Current())

	f.press(t, 'p')
	assert.Equal(t, n-1, f.session.Current())

	require.NoError(t, f.session.Tick())
	assert.Equal(t, "d.png", f.placement.last().Path)
	assert.Contains(t, f.status.String(), "[4/4]")
}

func TestSessionMoveAndZoom(t *testing.T) {
	f := newSessionFixture(t, 1)
	require.NoError(t, f.session.Tick())

	f.press(t, 'l', 'l', 'j', 'K')
	assert.Equal(t, Box{X: 1, Y: 0, Width: 101, Height: 42}, f.session.Box())
	assert.Equal(t, f.session.Box(), f.placement.last().Box)

	f.press(t, 'h', 'k', 'k')
	assert.Equal(t, Box{X: 0, Y: -2, Width: 101, Height: 42}, f.session.Box())
}

func TestSessionZoomOutFloor(t *testing.T) {
	f := newSessionFixture(t, 1)
	require.NoError(t, f.session.Tick())

	for range 200 {
		f.press(t, 'J')
		box := f.session.Box()
		require.GreaterOrEqual(t, box.Width, 1)
		require.GreaterOrEqual(t, box.Height, 1)
	}
	assert.Equal(t, 1, f.session.Box().Width)
	assert.Equal(t, 1, f.session.Box().Height)
}

func TestSessionResetIdempotent(t *testing.T) {
	f := newSessionFixture(t, 1)
	require.NoError(t, f.session.Tick())

	f.press(t, 'l', 'K', 'K')
	f.press(t, 'r')
	first := f.session.Box()
	f.press(t, 'r')
	assert.Equal(t, first, f.session.Box())
	assert.Equal(t, Box{X: -1, Y: -1, Width: 100, Height: 41}, first)
}

func TestSessionRecomputesOnResize(t *testing.T) {
	f := newSessionFixture(t, 1)
	require.NoError(t, f.session.Tick())
	f.press(t, 'l')

	f.geometry.g = Geometry{Rows: 20, Columns: 50, PixelWidth: 500, PixelHeight: 250}
	f.status.Reset()
	require.NoError(t, f.session.Tick())
	assert.Equal(t, Box{X: -1, Y: -1, Width: 50, Height: 21}, f.session.Box())
	assert.Contains(t, f.status.String(), "[1/1]")
}

func TestSessionQuit(t *testing.T) {
	tests := []struct {
		name string
		key  rune
	}{
		{name: "configured key", key: 'q'},
		{name: "escape", key: Escape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t, 2)
			require.NoError(t, f.session.Tick())
			require.Equal(t, Running, f.session.State())

			f.press(t, tt.key)
			assert.Equal(t, Terminated, f.session.State())
		})
	}
}

func TestSessionRun(t *testing.T) {
	f := newSessionFixture(t, 2)
	f.keys.push('n', 'K', 'q')

	require.NoError(t, f.session.Run(context.Background()))
	assert.Equal(t, Terminated, f.session.State())
	assert.True(t, f.placement.shown)
	assert.Equal(t, 1, f.session.Current())

	out := f.status.String()
	assert.Contains(t, out, hideCursor)
	assert.Contains(t, out, "[2/2]")
	assert.True(t, bytes.HasSuffix(f.status.Bytes(), []byte(showCursor)), "cursor restored last")
}

func TestSessionRunCancelled(t *testing.T) {
	f := newSessionFixture(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.session.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Terminated, f.session.State())
	assert.Contains(t, f.status.String(), showCursor)
}

func TestSessionGeometryFailure(t *testing.T) {
	f := newSessionFixture(t, 1)
	require.NoError(t, f.session.Tick())

	f.geometry.err = &TerminalQueryError{Op: "TIOCGWINSZ", Err: errors.New("gone")}
	err := f.session.Tick()

	var tqe *TerminalQueryError
	require.ErrorAs(t, err, &tqe)
	assert.Equal(t, Terminated, f.session.State())
}

func TestSessionStartupFailure(t *testing.T) {
	f := newSessionFixture(t, 1)
	f.geometry.err = &TerminalQueryError{Op: "TIOCGWINSZ"}

	err := f.session.Run(context.Background())
	var tqe *TerminalQueryError
	require.ErrorAs(t, err, &tqe)
	assert.False(t, f.placement.shown)
	assert.Contains(t, f.status.String(), showCursor)
}

func TestSessionKeyError(t *testing.T) {
	f := newSessionFixture(t, 1)
	f.keys.err = errors.New("stdin closed")

	err := f.session.Tick()
	assert.ErrorContains(t, err, "stdin closed")
	assert.Equal(t, Terminated, f.session.State())
}
