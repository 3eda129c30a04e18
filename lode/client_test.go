package lode

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/autotiny/metrics"
	"github.com/justapithecus/autotiny/runtime"
	"github.com/justapithecus/autotiny/types"
)

// sharedFactory returns a StoreFactory that always returns the given store,
// so write and read datasets share the same in-memory state.
func sharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

// failingStore is a lode.Store whose writes fail with putErr.
type failingStore struct {
	putErr   error
	putCalls int
}

func (s *failingStore) Put(_ context.Context, _ string, _ io.Reader) error {
	s.putCalls++
	return s.putErr
}

func (s *failingStore) Get(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, errors.New("not found")
}

func (s *failingStore) Exists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (s *failingStore) List(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (s *failingStore) Delete(_ context.Context, _ string) error {
	return nil
}

func (s *failingStore) ReadRange(_ context.Context, _ string, _, _ int64) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (s *failingStore) ReaderAt(_ context.Context, _ string) (io.ReaderAt, error) {
	return nil, errors.New("not implemented")
}

var _ lode.Store = (*failingStore)(nil)

func testReport(runID string) *runtime.RunReport {
	return &runtime.RunReport{
		RunID:      runID,
		StartedAt:  "2026-10-17T09:00:00Z",
		StopReason: types.StopCredentialsExhausted,
		Message:    "credentials exhausted",
		ExitCode:   runtime.ExitCodeCredentialsExhausted,
		DurationMs: 1200,
		Marker:     "tiny",
		Stats: types.RunStats{
			Total: 3, Processed: 1, Skipped: 1, Remaining: 1,
			CredentialsExhausted: 2, BytesBefore: 1000, BytesAfter: 400,
		},
		Files: []types.FileOutcome{
			{Path: "a.png", Format: "png", Status: types.FileProcessed, BytesBefore: 1000, BytesAfter: 400},
			{Path: "b.webp", Format: "webp", Status: types.FileSkipped, Reason: "already marked"},
		},
		Pending: []string{"c.png"},
		Metrics: &metrics.Snapshot{CompressCalls: 3, CompressFailures: 2},
	}
}

func newTestClient(t *testing.T, factory lode.StoreFactory, runID string) *LodeClient {
	t.Helper()
	client, err := NewLodeClientWithFactory(Config{Day: "2026-10-17", RunID: runID}, factory)
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory: %v", err)
	}
	client.now = func() time.Time { return time.Date(2026, 10, 17, 9, 0, 2, 0, time.UTC) }
	return client
}

func TestLodeClient_WriteReport(t *testing.T) {
	store := lode.NewMemory()
	client := newTestClient(t, sharedFactory(store), "run-001")

	if err := client.WriteReport(t.Context(), testReport("run-001")); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	ds, err := NewReadDataset(DefaultDataset, sharedFactory(store))
	if err != nil {
		t.Fatalf("NewReadDataset: %v", err)
	}
	latest, err := ds.Latest(t.Context())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	data, err := ds.Read(t.Context(), latest.ID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("Read returned %d records, want 3 (2 files + run)", len(data))
	}

	kinds := map[string]int{}
	for _, item := range data {
		record, ok := item.(map[string]any)
		if !ok {
			t.Fatalf("record type = %T", item)
		}
		kinds[toString(record["record_kind"])]++
		if toString(record["run_id"]) != "run-001" || toString(record["day"]) != "2026-10-17" {
			t.Errorf("partition values missing from %v", record)
		}
	}
	if kinds[RecordKindFile] != 2 || kinds[RecordKindRun] != 1 {
		t.Errorf("record kinds = %v", kinds)
	}
}

func TestLodeClient_WriteFailureIsClassified(t *testing.T) {
	store := &failingStore{putErr: errors.New("write /data: no space left on device")}
	client := newTestClient(t, sharedFactory(store), "run-001")

	err := client.WriteReport(t.Context(), testReport("run-001"))
	if err == nil {
		t.Fatal("expected write error")
	}
	if !errors.Is(err, ErrDiskFull) {
		t.Errorf("errors.Is(err, ErrDiskFull) = false: %v", err)
	}
	if store.putCalls == 0 {
		t.Error("store was never written to")
	}
}

func TestLodeClient_NilReport(t *testing.T) {
	client := newTestClient(t, lode.NewMemoryFactory(), "run-001")
	if err := client.WriteReport(t.Context(), nil); err == nil {
		t.Error("nil report accepted")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Day: "2026-10-17", RunID: "r"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Dataset != DefaultDataset {
		t.Errorf("Dataset = %q, want default", cfg.Dataset)
	}

	for _, bad := range []Config{{RunID: "r"}, {Day: "2026-10-17"}} {
		if err := bad.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil", bad)
		}
	}
}

func TestDeriveDay(t *testing.T) {
	start := time.Date(2026, 10, 17, 23, 30, 0, 0, time.FixedZone("PDT", -7*3600))
	if got := DeriveDay(start); got != "2026-10-18" {
		t.Errorf("DeriveDay = %q, want UTC day 2026-10-18", got)
	}
}

func TestInstrumentedClient(t *testing.T) {
	collector := metrics.NewCollector("tinify", "fs", "run-001")

	ok := NewInstrumentedClient(newTestClient(t, lode.NewMemoryFactory(), "run-001"), collector)
	if err := ok.WriteReport(t.Context(), testReport("run-001")); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	failing := NewInstrumentedClient(
		newTestClient(t, sharedFactory(&failingStore{putErr: errors.New("boom")}), "run-001"),
		collector,
	)
	if err := failing.WriteReport(t.Context(), testReport("run-001")); err == nil {
		t.Fatal("expected failure")
	}

	snap := collector.Snapshot()
	if snap.LodeWriteSuccess != 1 || snap.LodeWriteFailure != 1 {
		t.Errorf("lode writes = %d ok / %d failed, want 1/1", snap.LodeWriteSuccess, snap.LodeWriteFailure)
	}
	if err := ok.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		in, bucket, prefix string
	}{
		{"bucket", "bucket", ""},
		{"bucket/reports", "bucket", "reports"},
		{"s3://bucket/a/b/", "bucket", "a/b"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bucket, prefix := ParseS3Path(tt.in)
			if bucket != tt.bucket || prefix != tt.prefix {
				t.Errorf("ParseS3Path(%q) = %q, %q; want %q, %q", tt.in, bucket, prefix, tt.bucket, tt.prefix)
			}
		})
	}
}

func TestS3Config_Validate(t *testing.T) {
	if err := (&S3Config{}).Validate(); err == nil {
		t.Error("empty bucket accepted")
	}
	if err := (&S3Config{Bucket: "b"}).Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
