//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/blacktop/cimage"
	"github.com/blacktop/cimage/internal/config"
)

// errorKind names the failure for the terse report
func errorKind(err error) string {
	var (
		noImages *cimage.NoImagesFoundError
		format   *cimage.UnknownFormatError
		query    *cimage.TerminalQueryError
		cfg      *config.Error
	)
	switch {
	case errors.As(err, &noImages):
		return "NoImagesFound"
	case errors.As(err, &format):
		return "UnknownFormat"
	case errors.As(err, &query):
		return "TerminalQuery"
	case errors.As(err, &cfg):
		return "Config"
	default:
		return "Error"
	}
}

// report writes err to w and reports whether it is a failure. Cancellation
// by a signal is a normal exit.
func report(w io.Writer, err error, verbose bool) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if verbose {
		fmt.Fprintf(w, "%s: %+v\n", errorKind(err), err)
	} else {
		fmt.Fprintf(w, "%s: %s\n", errorKind(err), err)
	}
	return true
}
