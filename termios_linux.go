package cimage

import "golang.org/x/sys/unix"

func tcgetattr(fd int) (*unix.Termios, error) {
	return unix.IoctlGetTermios(fd, unix.TCGETS)
}

// tcsetattrFlush applies t after discarding pending input (TCSAFLUSH)
func tcsetattrFlush(fd int, t *unix.Termios) error {
	return unix.IoctlSetTermios(fd, unix.TCSETSF, t)
}
