package compress

import (
	"errors"
	"fmt"
)

// Sentinel errors for compression failure classification.
// Use errors.Is(err, ErrXxx); anything matching none of them is unclassified.
var (
	// ErrCredentialExhausted indicates the credential is out of quota or
	// rejected. The same input may succeed with another credential.
	ErrCredentialExhausted = errors.New("credential exhausted")

	// ErrInvalidInput indicates the service refused this particular input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable indicates a server-side failure.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrConnection indicates the service could not be reached.
	ErrConnection = errors.New("connection failure")
)

// Error wraps a failed call with its classification.
type Error struct {
	// Kind is the classification sentinel, or nil if unclassified.
	Kind error
	// Op is the request that failed ("shrink", "download").
	Op string
	// Status is the HTTP status code, or 0 for transport failures.
	Status int
	// Message is the service's error description, if any.
	Message string
	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	kind := "unclassified"
	if e.Kind != nil {
		kind = e.Kind.Error()
	}
	msg := fmt.Sprintf("%s: %s", e.Op, kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && errors.Is(e.Kind, target)
}

// Classify returns the sentinel err matches, or nil if it is unclassified.
func Classify(err error) error {
	for _, kind := range []error{
		ErrCredentialExhausted,
		ErrInvalidInput,
		ErrServiceUnavailable,
		ErrConnection,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindName returns a stable label for err's classification, for logs and metrics.
func KindName(err error) string {
	switch Classify(err) {
	case ErrCredentialExhausted:
		return "credential_exhausted"
	case ErrInvalidInput:
		return "invalid_input"
	case ErrServiceUnavailable:
		return "service_unavailable"
	case ErrConnection:
		return "connection"
	default:
		return "unclassified"
	}
}

// classifyStatus maps an HTTP status to a sentinel. 401 and 429 mean the
// credential cannot be used any further.
func classifyStatus(code int) error {
	switch {
	case code == 401 || code == 429:
		return ErrCredentialExhausted
	case code >= 400 && code < 500:
		return ErrInvalidInput
	case code >= 500:
		return ErrServiceUnavailable
	default:
		return nil
	}
}
