package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/justapithecus/autotiny/metrics"
	"github.com/justapithecus/autotiny/types"
)

// RunReport is the structured JSON report written by --report.
type RunReport struct {
	RunID      string           `json:"run_id"`
	StartedAt  string           `json:"started_at"`
	StopReason types.StopReason `json:"stop_reason"`
	Message    string           `json:"message"`
	Error      string           `json:"error,omitempty"`
	ExitCode   int              `json:"exit_code"`
	DurationMs int64            `json:"duration_ms"`
	Marker     string           `json:"marker"`

	Stats   types.RunStats      `json:"stats"`
	Files   []types.FileOutcome `json:"files"`
	Pending []string            `json:"pending,omitempty"`
	Metrics *metrics.Snapshot   `json:"metrics"`
}

// BuildRunReport composes a RunReport from a RunResult and metrics snapshot.
// The exitCode is the process exit code that will be returned to the caller.
func BuildRunReport(result *RunResult, snap metrics.Snapshot, marker string, exitCode int) *RunReport {
	report := &RunReport{
		RunID:      result.RunMeta.RunID,
		StopReason: result.Stop,
		Message:    result.Summary(),
		ExitCode:   exitCode,
		DurationMs: result.Duration.Milliseconds(),
		Marker:     marker,
		Stats:      result.Stats,
		Files:      result.Files,
		Pending:    result.Pending,
		Metrics:    &snap,
	}
	if !result.RunMeta.StartedAt.IsZero() {
		report.StartedAt = result.RunMeta.StartedAt.UTC().Format(time.RFC3339)
	}
	if result.Err != nil {
		report.Error = result.Err.Error()
	}
	if report.Files == nil {
		report.Files = []types.FileOutcome{}
	}
	return report
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		if err := writeRunReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	if err := writeRunReportTo(report, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeRunReportTo writes report JSON to any writer.
func writeRunReportTo(report *RunReport, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
