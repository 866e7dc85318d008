//go:build !(linux || darwin || freebsd || openbsd || netbsd || dragonfly)

package cimage

import "errors"

func winsize(int) (Geometry, error) {
	return Geometry{}, errors.New("terminal size is not supported on this platform")
}
