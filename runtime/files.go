package runtime

import (
	"os"

	"github.com/justapithecus/autotiny/iox"
)

// FileStore reads and replaces the files a run works on.
type FileStore interface {
	ReadFile(path string) ([]byte, error)
	// WriteFile replaces path with data. Implementations must not leave a
	// partially written file behind on failure.
	WriteFile(path string, data []byte) error
}

// OSFileStore is the local filesystem. Writes go through a temp file and
// rename, keeping the original file mode.
type OSFileStore struct{}

// ReadFile reads path.
func (OSFileStore) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile atomically replaces path.
func (OSFileStore) WriteFile(path string, data []byte) error {
	return iox.WriteFileAtomic(path, data, 0o644)
}
