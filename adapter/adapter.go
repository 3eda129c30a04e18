// Package adapter defines the notification boundary for finished runs.
//
// Adapters publish a run summary to downstream systems once the batch
// loop has stopped. Publishing is best effort and never changes a run's
// outcome or exit code.
package adapter

import "context"

// EventTypeRunCompleted is the only event type adapters publish.
const EventTypeRunCompleted = "run_completed"

// RunCompletedEvent is the payload published when a run finishes.
type RunCompletedEvent struct {
	EventType  string `json:"event_type"` // always "run_completed"
	RunID      string `json:"run_id"`
	StopReason string `json:"stop_reason"` // worklist_drained, credentials_exhausted, fatal
	Error      string `json:"error,omitempty"`
	Marker     string `json:"marker"`
	Total      int    `json:"total"`
	Processed  int    `json:"processed"`
	Skipped    int    `json:"skipped"`
	Errored    int    `json:"errored"`
	Remaining  int    `json:"remaining"`
	BytesSaved int64  `json:"bytes_saved"`
	ReportPath string `json:"report_path,omitempty"`
	Timestamp  string `json:"timestamp"` // ISO 8601
	DurationMs int64  `json:"duration_ms"`
	Version    string `json:"version"`
}

// Adapter publishes run completion events to a downstream system.
// Implementations must be safe for single-use per run.
type Adapter interface {
	// Publish sends a run completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *RunCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
