//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package cimage

import "golang.org/x/sys/unix"

func winsize(fd int) (Geometry, error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{
		Rows:        int(ws.Row),
		Columns:     int(ws.Col),
		PixelWidth:  int(ws.Xpixel),
		PixelHeight: int(ws.Ypixel),
	}, nil
}
