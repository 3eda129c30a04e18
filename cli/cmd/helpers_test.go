package cmd

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/urfave/cli/v2"
)

// runApp runs the CLI with args and returns stdout and the exit code.
func runApp(t *testing.T, args ...string) (stdout string, code int) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := &cli.App{
		Name:           "autotiny",
		Writer:         &out,
		ErrWriter:      &errOut,
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			InitCommand(),
			RunCommand(),
			ScanCommand(),
			HistoryCommand(),
			VersionCommand("test-commit"),
		},
	}

	err := app.Run(append([]string{"autotiny"}, args...))
	if err != nil {
		var exitCoder cli.ExitCoder
		if !errors.As(err, &exitCoder) {
			t.Fatalf("unexpected error: %v\nstderr: %s", err, errOut.String())
		}
		code = exitCoder.ExitCode()
	}
	t.Logf("stderr: %s", errOut.String())
	return out.String(), code
}

// pngBytes encodes a small opaque image.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// fakeTinify echoes uploads back as the compressed result. Requests using
// a key listed in rejected are answered with 429.
type fakeTinify struct {
	*httptest.Server
	shrinks atomic.Int32
}

func newFakeTinify(t *testing.T, rejected ...string) *fakeTinify {
	t.Helper()
	f := &fakeTinify{}
	var last atomic.Value
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, key, _ := r.BasicAuth()
		for _, k := range rejected {
			if key == k {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = io.WriteString(w, `{"error":"TooManyRequests","message":"Your monthly limit has been exceeded"}`)
				return
			}
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/shrink":
			body, _ := io.ReadAll(r.Body)
			last.Store(body)
			f.shrinks.Add(1)
			w.Header().Set("Location", f.URL+"/output/1")
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodGet && r.URL.Path == "/output/1":
			body, _ := last.Load().([]byte)
			_, _ = w.Write(body)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

// writeFile creates path (and its directory) with data.
func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// writeConfig writes an .autotiny.yaml in dir from lines and returns its path.
func writeConfig(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, ".autotiny.yaml")
	writeFile(t, path, []byte(strings.Join(lines, "\n")+"\n"))
	return path
}
