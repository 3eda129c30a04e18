// Package types defines core domain types shared across autotiny packages.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"time"
)

// RunMeta identifies a single batch run.
type RunMeta struct {
	// RunID is the run identifier. Must be non-empty.
	RunID string
	// StartedAt is when the run began.
	StartedAt time.Time
}

// Validate checks that the run identity is usable.
func (r *RunMeta) Validate() error {
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}
	return nil
}

// StopReason is why a run stopped. Exactly one applies per run.
type StopReason string

const (
	// StopWorklistDrained means every file was consumed.
	StopWorklistDrained StopReason = "worklist_drained"
	// StopCredentialsExhausted means the credential pool ran dry with files left.
	StopCredentialsExhausted StopReason = "credentials_exhausted"
	// StopFatal means a run-fatal failure halted the loop.
	StopFatal StopReason = "fatal"
)

// IsSuccess reports whether the run finished all of its work.
func (s StopReason) IsSuccess() bool {
	return s == StopWorklistDrained
}

// FileStatus is the per-file result of a run.
type FileStatus string

const (
	// FileProcessed means the file was compressed, marked, and written back.
	FileProcessed FileStatus = "processed"
	// FileSkipped means the file already carried the marker.
	FileSkipped FileStatus = "skipped"
	// FileUnsupported means no codec handles the file's extension.
	FileUnsupported FileStatus = "unsupported"
	// FileErrored means the file was rejected and left untouched.
	FileErrored FileStatus = "errored"
)

// FileOutcome records what happened to one consumed file.
type FileOutcome struct {
	Path        string     `json:"path" yaml:"path"`
	Format      string     `json:"format" yaml:"format"`
	Status      FileStatus `json:"status" yaml:"status"`
	Reason      string     `json:"reason,omitempty" yaml:"reason,omitempty"`
	BytesBefore int64      `json:"bytes_before,omitempty" yaml:"bytes_before,omitempty"`
	BytesAfter  int64      `json:"bytes_after,omitempty" yaml:"bytes_after,omitempty"`
}

// RunStats are the run counters. Unsupported files count as skipped.
// Remaining is the number of files never consumed.
type RunStats struct {
	Total                int   `json:"total" yaml:"total"`
	Processed            int   `json:"processed" yaml:"processed"`
	Skipped              int   `json:"skipped" yaml:"skipped"`
	Errored              int   `json:"errored" yaml:"errored"`
	Remaining            int   `json:"remaining" yaml:"remaining"`
	CredentialsExhausted int   `json:"credentials_exhausted" yaml:"credentials_exhausted"`
	BytesBefore          int64 `json:"bytes_before" yaml:"bytes_before"`
	BytesAfter           int64 `json:"bytes_after" yaml:"bytes_after"`
}

// BytesSaved returns the total size reduction over processed files.
func (s RunStats) BytesSaved() int64 {
	return s.BytesBefore - s.BytesAfter
}
