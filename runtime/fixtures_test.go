package runtime

import (
	"context"
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/justapithecus/autotiny/container"
)

func pngChunk(typ string, data []byte) []byte {
	buf := binary.BigEndian.AppendUint32(nil, uint32(len(data)))
	buf = append(buf, typ...)
	buf = append(buf, data...)
	return binary.BigEndian.AppendUint32(buf, crc32.ChecksumIEEE(append([]byte(typ), data...)))
}

// minimalPNG is a structurally valid PNG: signature, IHDR, IDAT, IEND.
func minimalPNG() []byte {
	out := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 1)
	binary.BigEndian.PutUint32(ihdr[4:8], 1)
	ihdr[8] = 8
	out = append(out, pngChunk("IHDR", ihdr)...)
	out = append(out, pngChunk("IDAT", []byte{0x78, 0x9c, 0x63, 0x00, 0x00})...)
	return append(out, pngChunk("IEND", nil)...)
}

// minimalWEBP is a RIFF/WEBP container with a VP8X and one image chunk.
func minimalWEBP() []byte {
	body := []byte("WEBP")
	body = append(body, "VP8X"...)
	body = binary.LittleEndian.AppendUint32(body, 10)
	body = append(body, make([]byte, 10)...)
	body = append(body, "VP8L"...)
	body = binary.LittleEndian.AppendUint32(body, 4)
	body = append(body, 0x2f, 0, 0, 0)
	out := append([]byte("RIFF"), binary.LittleEndian.AppendUint32(nil, uint32(len(body)))...)
	return append(out, body...)
}

// marked returns data with marker already embedded by its codec.
func marked(t *testing.T, path string, data []byte) []byte {
	t.Helper()
	codec, ok := container.ForPath(path)
	if !ok {
		t.Fatalf("no codec for %s", path)
	}
	out, err := codec.InsertMarker(data, DefaultMarker)
	if err != nil {
		t.Fatalf("InsertMarker(%s): %v", path, err)
	}
	return out
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

// call is one recorded compressor invocation.
type call struct {
	credential string
	size       int
}

// scriptedCompressor returns errs[i] for the i-th call (nil means success,
// echoing the input back) and records every call.
type scriptedCompressor struct {
	mu    sync.Mutex
	errs  []error
	calls []call
}

func (s *scriptedCompressor) Compress(_ context.Context, data []byte, credential string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.calls)
	s.calls = append(s.calls, call{credential: credential, size: len(data)})
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *scriptedCompressor) Calls() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]call, len(s.calls))
	copy(out, s.calls)
	return out
}
