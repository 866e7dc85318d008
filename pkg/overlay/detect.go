package overlay

import (
	"os"
	"strings"
)

// KittyQuerier asks the terminal whether it speaks the Kitty graphics protocol
type KittyQuerier interface {
	KittyGraphics() (bool, error)
}

// Detect picks a protocol from the environment, then from a Kitty graphics
// query when q is not nil, falling back to halfblocks.
func Detect(q KittyQuerier) Protocol {
	switch {
	case KittyFromEnvironment():
		return Kitty
	case ITerm2FromEnvironment():
		return ITerm2
	case SixelFromEnvironment():
		return Sixel
	}
	if q != nil {
		if ok, err := q.KittyGraphics(); err == nil && ok {
			return Kitty
		}
	}
	return Halfblocks
}

// KittyFromEnvironment checks environment variables of terminals known to
// implement Kitty graphics
func KittyFromEnvironment() bool {
	switch {
	case os.Getenv("KITTY_WINDOW_ID") != "":
		return true
	case strings.Contains(strings.ToLower(os.Getenv("TERM")), "kitty"):
		return true
	case os.Getenv("TERM_PROGRAM") == "ghostty":
		return true
	case os.Getenv("TERM_PROGRAM") == "WezTerm":
		return true
	case strings.Contains(os.Getenv("TERMINFO"), "Ghostty"):
		// ghostty behind tmux
		return true
	}
	return false
}

// ITerm2FromEnvironment checks for iTerm2 and its look-alikes
func ITerm2FromEnvironment() bool {
	termProgram := os.Getenv("TERM_PROGRAM")
	switch {
	case termProgram == "iTerm.app":
		return true
	case termProgram == "mintty" || os.Getenv("TERM") == "mintty":
		return true
	case termProgram == "WarpTerminal":
		return true
	case strings.Contains(strings.ToLower(os.Getenv("LC_TERMINAL")), "iterm"):
		return true
	case os.Getenv("ITERM_SESSION_ID") != "":
		return true
	}
	return false
}

// SixelFromEnvironment checks TERM for terminals with Sixel support
func SixelFromEnvironment() bool {
	termEnv := os.Getenv("TERM")
	switch {
	case strings.Contains(termEnv, "sixel"):
		return true
	case strings.Contains(termEnv, "mlterm"):
		return true
	case strings.Contains(termEnv, "foot"):
		return true
	case strings.Contains(termEnv, "yaft"):
		return true
	case strings.Contains(termEnv, "xterm") && os.Getenv("XTERM_VERSION") != "":
		// xterm needs -ti 340
		return true
	case strings.Contains(os.Getenv("TERM_PROGRAM"), "mlterm"):
		return true
	}
	return false
}

// FallbackCellSize guesses the cell size in pixels from the terminal program
func FallbackCellSize() (width, height int) {
	termEnv := os.Getenv("TERM")
	switch termProgram := os.Getenv("TERM_PROGRAM"); {
	case termProgram == "vscode":
		return 7, 14
	case termProgram == "iTerm.app":
		return 8, 16
	case termProgram == "WezTerm":
		return 8, 18
	case termProgram == "Alacritty":
		return 7, 15
	case strings.Contains(termEnv, "xterm"):
		return 7, 14
	default:
		return 8, 16
	}
}
