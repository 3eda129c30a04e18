package container

import (
	"errors"
	"fmt"
)

// ErrFormat is the sentinel for structurally invalid container bytes.
// Use errors.Is(err, ErrFormat) rather than asserting on *FormatError.
var ErrFormat = errors.New("invalid container format")

// FormatError describes why a buffer could not be walked as a container.
type FormatError struct {
	// Format is the container being parsed.
	Format Format
	// Op is the codec operation that failed ("has_marker", "insert_marker").
	Op string
	// Offset is the byte offset where parsing stopped, or -1 if not applicable.
	Offset int
	// Msg is a human-readable reason.
	Msg string
}

func (e *FormatError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s %s: %v: %s at offset %d", e.Format, e.Op, ErrFormat, e.Msg, e.Offset)
	}
	return fmt.Sprintf("%s %s: %v: %s", e.Format, e.Op, ErrFormat, e.Msg)
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

func formatErr(f Format, op string, offset int, msg string) *FormatError {
	return &FormatError{Format: f, Op: op, Offset: offset, Msg: msg}
}
