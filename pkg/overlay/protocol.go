package overlay

import (
	"fmt"
	"strings"
)

// Protocol is a terminal graphics protocol
type Protocol int

const (
	// Auto detects the best protocol for the terminal
	Auto Protocol = iota
	Kitty
	Sixel
	ITerm2
	Halfblocks
)

var protocolNames = []string{"auto", "kitty", "sixel", "iterm2", "halfblocks"}

func (p Protocol) String() string {
	if p < 0 || int(p) >= len(protocolNames) {
		return fmt.Sprintf("protocol(%d)", int(p))
	}
	return protocolNames[p]
}

// ParseProtocol parses a protocol name, case-insensitively
func ParseProtocol(name string) (Protocol, error) {
	for i, n := range protocolNames {
		if strings.EqualFold(n, name) {
			return Protocol(i), nil
		}
	}
	return Auto, fmt.Errorf("unknown protocol %q (want one of %s)", name, strings.Join(protocolNames, ", "))
}

// Transfer selects how Kitty image data reaches the terminal
type Transfer int

const (
	// Direct sends the pixels inline, base64 encoded
	Direct Transfer = iota
	// TempFile writes a temporary file the terminal reads and deletes
	TempFile
)

var transferNames = []string{"direct", "tempfile"}

func (t Transfer) String() string {
	if t < 0 || int(t) >= len(transferNames) {
		return fmt.Sprintf("transfer(%d)", int(t))
	}
	return transferNames[t]
}

// ParseTransfer parses a transfer mode name
func ParseTransfer(name string) (Transfer, error) {
	for i, n := range transferNames {
		if strings.EqualFold(n, name) {
			return Transfer(i), nil
		}
	}
	return Direct, fmt.Errorf("unknown transfer %q (want one of %s)", name, strings.Join(transferNames, ", "))
}
