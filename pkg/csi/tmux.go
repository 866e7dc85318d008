package csi

import (
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	passthroughEnabled bool
	passthroughOnce    sync.Once

	// tmux wrapping requested on the command line
	forced atomic.Bool
)

// ForceTmux wraps sequences for tmux even when the environment does not say so,
// e.g. when TMUX is lost across sudo or ssh
func ForceTmux(force bool) {
	forced.Store(force)
}

// InTmux reports whether output goes through tmux
func InTmux() bool {
	if forced.Load() {
		return true
	}
	return os.Getenv("TMUX") != "" || os.Getenv("TERM_PROGRAM") == "tmux"
}

// EnableTmuxPassthrough turns on allow-passthrough for the current pane, once.
// It does nothing outside tmux.
func EnableTmuxPassthrough() bool {
	if !InTmux() {
		return false
	}
	passthroughOnce.Do(func() {
		// -p sets the option for the current pane only
		cmd := exec.Command("tmux", "set", "-p", "allow-passthrough", "on")
		if err := cmd.Run(); err == nil {
			passthroughEnabled = true
		}
	})
	return passthroughEnabled
}

// WrapTmux wraps an escape sequence in a tmux passthrough envelope when running
// inside tmux. Every ESC in the sequence is doubled.
func WrapTmux(seq string) string {
	if !InTmux() || !strings.HasPrefix(seq, "\x1b") {
		return seq
	}
	return "\x1bPtmux;" + strings.ReplaceAll(seq, "\x1b", "\x1b\x1b") + "\x1b\\"
}
