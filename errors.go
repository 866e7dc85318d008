package cimage

import (
	"fmt"
	"strings"
)

// UnknownFormatError is returned when an image header can not be understood.
// It is recoverable: the resolver skips the file and keeps going.
type UnknownFormatError struct {
	Path string
	Err  error
}

func (e *UnknownFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unknown image format: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("unknown image format: %s", e.Path)
}

func (e *UnknownFormatError) Unwrap() error {
	return e.Err
}

// NoImagesFoundError is returned when the inputs resolve to nothing displayable.
type NoImagesFoundError struct {
	Inputs []string
}

func (e *NoImagesFoundError) Error() string {
	return fmt.Sprintf("no images found in: %s", strings.Join(e.Inputs, ", "))
}

// TerminalQueryError is returned when the controlling terminal can not report
// its geometry (for instance when it is not a real terminal).
type TerminalQueryError struct {
	Op  string
	Err error
}

func (e *TerminalQueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("terminal query failed: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("terminal query failed: %s", e.Op)
}

func (e *TerminalQueryError) Unwrap() error {
	return e.Err
}
