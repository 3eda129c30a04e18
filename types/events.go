package types

import "time"

// EventName names an orchestrator event.
type EventName string

// Orchestrator event names.
const (
	EventRunStarted          EventName = "run_started"
	EventFileProcessed       EventName = "file_processed"
	EventFileSkipped         EventName = "file_skipped"
	EventFileErrored         EventName = "file_errored"
	EventCredentialExhausted EventName = "credential_exhausted"
	EventRunHalted           EventName = "run_halted"
	EventRunFinished         EventName = "run_finished"
)

// IsTerminal returns true if this event ends a run.
func (e EventName) IsTerminal() bool {
	return e == EventRunFinished
}

// LogLevel represents event severity.
type LogLevel string

// Log level constants.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Event is a named, leveled record of something the orchestrator did.
type Event struct {
	Name   EventName
	Level  LogLevel
	Ts     time.Time
	Fields map[string]any
}
