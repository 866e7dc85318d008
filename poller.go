//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package cimage

import (
	"io"
	"sync"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// KeyPoller reads single keys from a terminal without blocking.
// Enter switches the terminal to non-canonical, no-echo mode and Exit restores
// the settings captured by Enter.
type KeyPoller struct {
	fd int

	mu    sync.Mutex
	saved *unix.Termios
}

// NewKeyPoller creates a poller for the terminal open on fd
func NewKeyPoller(fd int) *KeyPoller {
	return &KeyPoller{fd: fd}
}

// Enter captures the current line discipline and disables ICANON and ECHO
func (p *KeyPoller) Enter() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.saved != nil {
		return nil
	}
	state, err := tcgetattr(p.fd)
	if err != nil {
		return &TerminalQueryError{Op: "tcgetattr", Err: err}
	}
	saved := *state

	raw := *state
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := tcsetattrFlush(p.fd, &raw); err != nil {
		return &TerminalQueryError{Op: "tcsetattr", Err: err}
	}
	p.saved = &saved
	return nil
}

// Exit restores the settings captured by Enter. It is safe to call more than once.
func (p *KeyPoller) Exit() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.saved == nil {
		return nil
	}
	err := tcsetattrFlush(p.fd, p.saved)
	p.saved = nil
	if err != nil {
		return errors.Wrap(err, "failed to restore terminal settings")
	}
	return nil
}

// Poll returns the next key if one is ready, never blocking when none is.
// Exactly one UTF-8 encoded character is consumed.
func (p *KeyPoller) Poll() (rune, bool, error) {
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	if err != nil {
		if err == unix.EINTR {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "poll failed")
	}
	if n == 0 {
		return 0, false, nil
	}
	if fds[0].Revents&unix.POLLIN == 0 {
		if fds[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			return 0, false, io.EOF
		}
		return 0, false, nil
	}

	var buf [utf8.UTFMax]byte
	if err := p.readFull(buf[:1]); err != nil {
		return 0, false, err
	}
	size := runeLength(buf[0])
	if size > 1 {
		if err := p.readFull(buf[1:size]); err != nil {
			return 0, false, err
		}
	}
	r, _ := utf8.DecodeRune(buf[:size])
	return r, true, nil
}

func (p *KeyPoller) readFull(b []byte) error {
	for len(b) > 0 {
		n, err := unix.Read(p.fd, b)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return errors.Wrap(err, "read failed")
		}
		if n == 0 {
			return io.EOF
		}
		b = b[n:]
	}
	return nil
}

// runeLength returns the encoded length announced by a UTF-8 leading byte
func runeLength(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}

// WithKeyPoller runs fn with the terminal on fd in polling mode, restoring the
// original settings however fn returns.
func WithKeyPoller(fd int, fn func(*KeyPoller) error) (err error) {
	p := NewKeyPoller(fd)
	if err := p.Enter(); err != nil {
		return err
	}
	defer func() {
		if exitErr := p.Exit(); exitErr != nil && err == nil {
			err = exitErr
		}
	}()
	return fn(p)
}
