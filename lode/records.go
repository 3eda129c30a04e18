package lode

import (
	"time"

	"github.com/justapithecus/autotiny/runtime"
	"github.com/justapithecus/autotiny/types"
)

// Record kind discriminator values. record_kind is also the last
// partition key, after day and run_id.
const (
	RecordKindFile = "file"
	RecordKindRun  = "run"
)

// RunRecord is the stored summary of one run, as returned by QueryRuns.
type RunRecord struct {
	RunID       string           `json:"run_id" yaml:"run_id"`
	Day         string           `json:"day" yaml:"day"`
	StartedAt   string           `json:"started_at" yaml:"started_at"`
	CompletedAt string           `json:"completed_at" yaml:"completed_at"`
	StopReason  types.StopReason `json:"stop_reason" yaml:"stop_reason"`
	Error       string           `json:"error,omitempty" yaml:"error,omitempty"`
	ExitCode    int              `json:"exit_code" yaml:"exit_code"`
	DurationMs  int64            `json:"duration_ms" yaml:"duration_ms"`
	Marker      string           `json:"marker" yaml:"marker"`
	Stats       types.RunStats   `json:"stats" yaml:"stats"`
}

// toFileRecordMap converts a per-file outcome to a map for storage.
func toFileRecordMap(f types.FileOutcome, cfg Config) map[string]any {
	m := map[string]any{
		"record_kind": RecordKindFile,
		"path":        f.Path,
		"format":      f.Format,
		"status":      string(f.Status),
		"day":         cfg.Day,
		"run_id":      cfg.RunID,
	}
	if f.Reason != "" {
		m["reason"] = f.Reason
	}
	if f.Status == types.FileProcessed {
		m["bytes_before"] = f.BytesBefore
		m["bytes_after"] = f.BytesAfter
	}
	return m
}

// toRunRecordMap converts a run report to the run summary record.
func toRunRecordMap(r *runtime.RunReport, cfg Config, completedAt time.Time) map[string]any {
	m := map[string]any{
		"record_kind":           RecordKindRun,
		"started_at":            r.StartedAt,
		"completed_at":          completedAt.UTC().Format(time.RFC3339),
		"stop_reason":           string(r.StopReason),
		"exit_code":             r.ExitCode,
		"duration_ms":           r.DurationMs,
		"marker":                r.Marker,
		"total":                 r.Stats.Total,
		"processed":             r.Stats.Processed,
		"skipped":               r.Stats.Skipped,
		"errored":               r.Stats.Errored,
		"remaining":             r.Stats.Remaining,
		"credentials_exhausted": r.Stats.CredentialsExhausted,
		"bytes_before":          r.Stats.BytesBefore,
		"bytes_after":           r.Stats.BytesAfter,
		"pending":               len(r.Pending),
		"day":                   cfg.Day,
		"run_id":                cfg.RunID,
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	if r.Metrics != nil {
		m["compress_calls"] = r.Metrics.CompressCalls
		m["compress_failures"] = r.Metrics.CompressFailures
	}
	return m
}

// runRecordFromMap decodes a stored run record. JSONL round trips turn
// numbers into float64, so numeric fields accept any numeric type.
func runRecordFromMap(m map[string]any) RunRecord {
	return RunRecord{
		RunID:       toString(m["run_id"]),
		Day:         toString(m["day"]),
		StartedAt:   toString(m["started_at"]),
		CompletedAt: toString(m["completed_at"]),
		StopReason:  types.StopReason(toString(m["stop_reason"])),
		Error:       toString(m["error"]),
		ExitCode:    int(toInt64(m["exit_code"])),
		DurationMs:  toInt64(m["duration_ms"]),
		Marker:      toString(m["marker"]),
		Stats: types.RunStats{
			Total:                int(toInt64(m["total"])),
			Processed:            int(toInt64(m["processed"])),
			Skipped:              int(toInt64(m["skipped"])),
			Errored:              int(toInt64(m["errored"])),
			Remaining:            int(toInt64(m["remaining"])),
			CredentialsExhausted: int(toInt64(m["credentials_exhausted"])),
			BytesBefore:          toInt64(m["bytes_before"]),
			BytesAfter:           toInt64(m["bytes_after"]),
		},
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
