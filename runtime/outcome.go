package runtime

import (
	"fmt"

	"github.com/justapithecus/autotiny/types"
)

// Process exit codes.
const (
	ExitCodeCompleted            = 0 // worklist drained
	ExitCodeFatal                = 1 // run halted on a fatal failure
	ExitCodeConfigError          = 2 // invalid configuration or usage
	ExitCodeCredentialsExhausted = 3 // credential pool ran dry with files left
)

// ExitCodeFor maps a stop reason to a process exit code.
func ExitCodeFor(stop types.StopReason) int {
	switch stop {
	case types.StopWorklistDrained:
		return ExitCodeCompleted
	case types.StopCredentialsExhausted:
		return ExitCodeCredentialsExhausted
	case types.StopFatal:
		return ExitCodeFatal
	default:
		return ExitCodeFatal
	}
}

// Summary returns a one-line human description of the result.
func (r *RunResult) Summary() string {
	s := r.Stats
	base := fmt.Sprintf("processed %d, skipped %d, errored %d, remaining %d of %d",
		s.Processed, s.Skipped, s.Errored, s.Remaining, s.Total)
	switch r.Stop {
	case types.StopWorklistDrained:
		return "run completed: " + base
	case types.StopCredentialsExhausted:
		return "credentials exhausted: " + base
	default:
		if r.Err != nil {
			return fmt.Sprintf("run halted: %s (%v)", base, r.Err)
		}
		return "run halted: " + base
	}
}
