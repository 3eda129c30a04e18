// Package worklist provides the ordered, consume-once list of files a
// batch run works through.
package worklist

import (
	"fmt"
	"os"
	"path/filepath"
)

// Worklist is a cursor over an immutable snapshot of paths. Each path is
// consumed exactly once and never re-enqueued.
type Worklist struct {
	paths  []string
	cursor int
}

// New creates a worklist over paths, in order. The slice is copied.
func New(paths []string) *Worklist {
	snapshot := make([]string, len(paths))
	copy(snapshot, paths)
	return &Worklist{paths: snapshot}
}

// Head returns the next unconsumed path. ok is false once the list is drained.
func (w *Worklist) Head() (path string, ok bool) {
	if w.cursor >= len(w.paths) {
		return "", false
	}
	return w.paths[w.cursor], true
}

// Advance consumes the head. It is a no-op on a drained list.
func (w *Worklist) Advance() {
	if w.cursor < len(w.paths) {
		w.cursor++
	}
}

// Position returns the 1-based index of the head path.
func (w *Worklist) Position() int { return w.cursor + 1 }

// Total returns the number of paths the list started with.
func (w *Worklist) Total() int { return len(w.paths) }

// Remaining returns the number of unconsumed paths, head included.
func (w *Worklist) Remaining() int { return len(w.paths) - w.cursor }

// Pending returns a copy of the unconsumed paths.
func (w *Worklist) Pending() []string {
	out := make([]string, len(w.paths)-w.cursor)
	copy(out, w.paths[w.cursor:])
	return out
}

// Expand resolves glob patterns into a de-duplicated list of regular files,
// in first-seen order. A pattern matching nothing contributes nothing; a
// malformed pattern is an error.
func Expand(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			clean := filepath.Clean(m)
			if _, dup := seen[clean]; dup {
				continue
			}
			info, err := os.Stat(clean)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			seen[clean] = struct{}{}
			paths = append(paths, clean)
		}
	}
	return paths, nil
}
