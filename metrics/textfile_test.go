package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testSnapshot() Snapshot {
	c := NewCollector("tinify", "fs", "run-001")
	c.IncFileProcessed(1000, 400)
	c.IncFileProcessed(500, 300)
	c.IncFileSkipped()
	c.IncCompressFailure("credential_exhausted")
	c.IncLodeWriteSuccess()
	return c.Snapshot()
}

func TestSnapshotCollector_Count(t *testing.T) {
	snap := testSnapshot()
	// One series per counter plus one per failure kind.
	want := len(snap.counters()) + len(snap.FailuresByKind)
	if got := testutil.CollectAndCount(newSnapshotCollector(snap)); got != want {
		t.Errorf("collected %d series, want %d", got, want)
	}
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autotiny.prom")
	if err := WriteTextfile(path, testSnapshot()); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	values := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, _, _ := strings.Cut(line, "{")
		fields := strings.Fields(line)
		if name == "autotiny_compress_failures_by_kind_total" && !strings.Contains(line, `kind="credential_exhausted"`) {
			continue
		}
		values[name] = fields[len(fields)-1]
		if !strings.Contains(line, `run_id="run-001"`) || !strings.Contains(line, `compressor="tinify"`) {
			t.Errorf("line missing run labels: %s", line)
		}
	}

	for name, want := range map[string]string{
		"autotiny_files_processed_total":           "2",
		"autotiny_files_skipped_total":             "1",
		"autotiny_bytes_in_total":                  "1500",
		"autotiny_bytes_out_total":                 "700",
		"autotiny_report_writes_total":             "1",
		"autotiny_compress_failures_by_kind_total": "1",
	} {
		if values[name] != want {
			t.Errorf("%s = %q, want %q", name, values[name], want)
		}
	}
}

func TestWriteTextfile_BadDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "autotiny.prom")
	if err := WriteTextfile(path, Snapshot{}); err == nil {
		t.Error("write into missing directory returned nil")
	}
}
