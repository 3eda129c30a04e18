// Package container detects and inserts an idempotency marker inside
// PNG and WEBP files without disturbing their chunk structure.
//
// Codecs are stateless and operate on whole in-memory buffers. They never
// mutate the input slice; InsertMarker always returns a fresh buffer.
package container

import (
	"path/filepath"
	"strings"
)

// Format identifies a supported container. The set is closed.
type Format int

const (
	// FormatUnsupported is any file the codecs do not understand.
	FormatUnsupported Format = iota
	// FormatPNG is a PNG image (.png).
	FormatPNG
	// FormatWEBP is a RIFF/WEBP image (.webp).
	FormatWEBP
)

// String returns the lowercase format name.
func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatWEBP:
		return "webp"
	case FormatUnsupported:
		return "unsupported"
	}
	return "unsupported"
}

// Codec detects and inserts a textual marker in one container format.
type Codec interface {
	// HasMarker reports whether data already carries marker.
	HasMarker(data []byte, marker string) (bool, error)
	// InsertMarker returns a copy of data with marker embedded.
	InsertMarker(data []byte, marker string) ([]byte, error)
}

var (
	_ Codec = PNG{}
	_ Codec = WEBP{}
)

// FormatForPath selects a format by file extension, case-insensitively.
// Content is never sniffed.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG
	case ".webp":
		return FormatWEBP
	default:
		return FormatUnsupported
	}
}

// Codec returns the codec for f. The bool is false for FormatUnsupported.
func (f Format) Codec() (Codec, bool) {
	switch f {
	case FormatPNG:
		return PNG{}, true
	case FormatWEBP:
		return WEBP{}, true
	case FormatUnsupported:
		return nil, false
	}
	return nil, false
}

// ForPath is shorthand for FormatForPath(path).Codec().
func ForPath(path string) (Codec, bool) {
	return FormatForPath(path).Codec()
}
