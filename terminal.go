//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package cimage

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// ControllingTerminal is the device path of the controlling terminal
const ControllingTerminal = "/dev/tty"

// OpenTerminal opens the controlling terminal for reading keys, querying its
// geometry and drawing the overlay.
func OpenTerminal() (*os.File, error) {
	f, err := os.OpenFile(ControllingTerminal, os.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &TerminalQueryError{Op: "open " + ControllingTerminal, Err: err}
	}
	if !term.IsTerminal(int(f.Fd())) {
		f.Close()
		return nil, &TerminalQueryError{Op: "open " + ControllingTerminal, Err: unix.ENOTTY}
	}
	return f, nil
}
