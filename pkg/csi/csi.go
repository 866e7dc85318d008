//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

/*
Package csi queries terminal capabilities with control sequences: the size of a
character cell (CSI 16 t), the text area in pixels (CSI 14 t) and support for
the Kitty graphics protocol. Replies are read with a deadline; terminals that
never answer produce ErrTimeout.
*/
package csi

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// QueryTimeout is the default time to wait for a reply
const QueryTimeout = 100 * time.Millisecond

const (
	cellSizeQuery = "\x1b[16t"
	textAreaQuery = "\x1b[14t"
	// DA1 is answered by every terminal, so it bounds waiting for replies to
	// queries an older terminal ignores.
	primaryAttributes = "\x1b[c"
	kittyQuery        = "\x1b_Gi=31,s=1,v=1,a=q,t=d,f=24;AAAA\x1b\\"
)

var (
	// ErrTimeout is returned when the terminal does not answer in time
	ErrTimeout = errors.New("csi: timed out waiting for terminal reply")

	tReport  = regexp.MustCompile(`\x1b\[(\d+);(\d+);(\d+)t`)
	da1Reply = regexp.MustCompile(`\x1b\[\?[0-9;]*c`)
)

// Querier sends queries to a terminal and collects replies
type Querier struct {
	tty     *os.File
	timeout time.Duration
}

// NewQuerier creates a querier over an open terminal. A zero timeout uses QueryTimeout.
func NewQuerier(tty *os.File, timeout time.Duration) *Querier {
	if timeout <= 0 {
		timeout = QueryTimeout
	}
	return &Querier{tty: tty, timeout: timeout}
}

// Query writes query and reads until complete reports the reply is whole, or
// the timeout expires. The terminal is in raw mode while waiting.
func (q *Querier) Query(query string, complete func([]byte) bool) ([]byte, error) {
	fd := int(q.tty.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("csi: failed to enter raw mode: %w", err)
	}
	defer term.Restore(fd, state)

	if _, err := q.tty.WriteString(WrapTmux(query)); err != nil {
		return nil, fmt.Errorf("csi: failed to write query: %w", err)
	}

	var reply []byte
	buf := make([]byte, 256)
	deadline := time.Now().Add(q.timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return reply, ErrTimeout
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(remaining.Milliseconds())+1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return reply, fmt.Errorf("csi: poll failed: %w", err)
		}
		if n == 0 {
			continue
		}
		n, err = unix.Read(fd, buf)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return reply, fmt.Errorf("csi: read failed: %w", err)
		}
		reply = append(reply, buf[:n]...)
		if complete(reply) {
			return reply, nil
		}
	}
}

// CellSize returns the character cell size in pixels using CSI 16 t
func (q *Querier) CellSize() (width, height int, err error) {
	reply, err := q.Query(cellSizeQuery, func(b []byte) bool {
		_, _, ok := ParseTReport(b, 6)
		return ok
	})
	if err != nil {
		return 0, 0, err
	}
	height, width, _ = ParseTReport(reply, 6)
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("csi: invalid cell size %dx%d", width, height)
	}
	return width, height, nil
}

// TextAreaPixels returns the text area size in pixels using CSI 14 t
func (q *Querier) TextAreaPixels() (width, height int, err error) {
	reply, err := q.Query(textAreaQuery, func(b []byte) bool {
		_, _, ok := ParseTReport(b, 4)
		return ok
	})
	if err != nil {
		return 0, 0, err
	}
	height, width, _ = ParseTReport(reply, 4)
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("csi: invalid text area size %dx%d", width, height)
	}
	return width, height, nil
}

// KittyGraphics reports whether the terminal answers a Kitty graphics query.
// The query is followed by DA1 so terminals without support still reply.
func (q *Querier) KittyGraphics() (bool, error) {
	reply, err := q.Query(kittyQuery+primaryAttributes, func(b []byte) bool {
		return da1Reply.Match(b)
	})
	if err != nil && !errors.Is(err, ErrTimeout) {
		return false, err
	}
	return ParseKittyReply(reply), nil
}

// ParseTReport extracts the two values of a "CSI code ; a ; b t" report
func ParseTReport(reply []byte, code int) (a, b int, ok bool) {
	for _, m := range tReport.FindAllSubmatch(reply, -1) {
		c, _ := strconv.Atoi(string(m[1]))
		if c != code {
			continue
		}
		a, _ = strconv.Atoi(string(m[2]))
		b, _ = strconv.Atoi(string(m[3]))
		return a, b, true
	}
	return 0, 0, false
}

// ParseKittyReply reports whether reply holds a successful graphics response to the query
func ParseKittyReply(reply []byte) bool {
	return bytes.Contains(reply, []byte("\x1b_Gi=31;OK"))
}

// Supported reports whether the terminal is likely to answer queries at all
func Supported(fd int) bool {
	if !term.IsTerminal(fd) {
		return false
	}
	switch os.Getenv("TERM_PROGRAM") {
	case "Apple_Terminal", "vscode":
		return false
	}
	return os.Getenv("TERM") != "dumb"
}
