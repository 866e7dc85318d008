//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package cimage

import (
	"errors"
	"os"
	"testing"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometryReader(t *testing.T) {
	ptmx, tty := openPTY(t)
	require.NoError(t, pty.Setsize(ptmx, &pty.Winsize{Rows: 40, Cols: 100, X: 1000, Y: 500}))

	g, err := NewGeometryReader(int(tty.Fd())).Geometry()
	require.NoError(t, err)
	assert.Equal(t, Geometry{Rows: 40, Columns: 100, PixelWidth: 1000, PixelHeight: 500}, g)
}

func TestGeometryReaderCellSizeFallback(t *testing.T) {
	ptmx, tty := openPTY(t)
	require.NoError(t, pty.Setsize(ptmx, &pty.Winsize{Rows: 24, Cols: 80}))

	calls := 0
	r := NewGeometryReader(int(tty.Fd()), WithCellSizeQuery(func() (int, int, error) {
		calls++
		return 10, 20, nil
	}))

	for range 3 {
		g, err := r.Geometry()
		require.NoError(t, err)
		assert.Equal(t, Geometry{Rows: 24, Columns: 80, PixelWidth: 800, PixelHeight: 480}, g)
	}
	assert.Equal(t, 1, calls, "cell size is queried once")
}

func TestGeometryReaderTextAreaFallback(t *testing.T) {
	tests := []struct {
		name     string
		cellSize PixelSizeFunc
	}{
		{name: "cell size query fails", cellSize: func() (int, int, error) { return 0, 0, errors.New("no reply") }},
		{name: "cell size query invalid", cellSize: func() (int, int, error) { return 0, 16, nil }},
		{name: "no cell size query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ptmx, tty := openPTY(t)
			require.NoError(t, pty.Setsize(ptmx, &pty.Winsize{Rows: 24, Cols: 80}))

			calls := 0
			opts := []GeometryOption{WithTextAreaQuery(func() (int, int, error) {
				calls++
				return 805, 485, nil
			})}
			if tt.cellSize != nil {
				opts = append(opts, WithCellSizeQuery(tt.cellSize))
			}
			r := NewGeometryReader(int(tty.Fd()), opts...)

			for range 2 {
				g, err := r.Geometry()
				require.NoError(t, err)
				assert.Equal(t, Geometry{Rows: 24, Columns: 80, PixelWidth: 800, PixelHeight: 480}, g)
			}
			assert.Equal(t, 1, calls)
		})
	}
}

func TestGeometryReaderPrefersCellSize(t *testing.T) {
	ptmx, tty := openPTY(t)
	require.NoError(t, pty.Setsize(ptmx, &pty.Winsize{Rows: 24, Cols: 80}))

	r := NewGeometryReader(int(tty.Fd()),
		WithCellSizeQuery(func() (int, int, error) { return 9, 18, nil }),
		WithTextAreaQuery(func() (int, int, error) {
			t.Error("text area queried although the cell size is known")
			return 0, 0, nil
		}),
	)
	g, err := r.Geometry()
	require.NoError(t, err)
	assert.Equal(t, 720, g.PixelWidth)
	assert.Equal(t, 432, g.PixelHeight)
}

func TestGeometryReaderErrors(t *testing.T) {
	t.Run("no pixel size and no fallback", func(t *testing.T) {
		ptmx, tty := openPTY(t)
		require.NoError(t, pty.Setsize(ptmx, &pty.Winsize{Rows: 24, Cols: 80}))

		_, err := NewGeometryReader(int(tty.Fd())).Geometry()
		var tqe *TerminalQueryError
		assert.ErrorAs(t, err, &tqe)
	})

	t.Run("fallback fails", func(t *testing.T) {
		ptmx, tty := openPTY(t)
		require.NoError(t, pty.Setsize(ptmx, &pty.Winsize{Rows: 24, Cols: 80}))

		cause := errors.New("no reply")
		r := NewGeometryReader(int(tty.Fd()), WithCellSizeQuery(func() (int, int, error) {
			return 0, 0, cause
		}))
		_, err := r.Geometry()
		assert.ErrorIs(t, err, cause)
	})

	t.Run("both fallbacks fail", func(t *testing.T) {
		ptmx, tty := openPTY(t)
		require.NoError(t, pty.Setsize(ptmx, &pty.Winsize{Rows: 24, Cols: 80}))

		cause := errors.New("no text area")
		r := NewGeometryReader(int(tty.Fd()),
			WithCellSizeQuery(func() (int, int, error) { return 0, 0, errors.New("no cell size") }),
			WithTextAreaQuery(func() (int, int, error) { return 0, 0, cause }),
		)
		_, err := r.Geometry()
		var tqe *TerminalQueryError
		require.ErrorAs(t, err, &tqe)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "no cell size")
	})

	t.Run("empty grid", func(t *testing.T) {
		ptmx, tty := openPTY(t)
		require.NoError(t, pty.Setsize(ptmx, &pty.Winsize{}))

		_, err := NewGeometryReader(int(tty.Fd())).Geometry()
		var tqe *TerminalQueryError
		assert.ErrorAs(t, err, &tqe)
	})

	t.Run("not a terminal", func(t *testing.T) {
		f, err := os.CreateTemp(t.TempDir(), "plain")
		require.NoError(t, err)
		defer f.Close()

		_, err = NewGeometryReader(int(f.Fd())).Geometry()
		var tqe *TerminalQueryError
		require.ErrorAs(t, err, &tqe)
		assert.Equal(t, "TIOCGWINSZ", tqe.Op)
	})
}
