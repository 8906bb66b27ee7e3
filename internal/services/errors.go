package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDownstream marks transport-level failures reaching a downstream
	// processor (connection refused, 5xx, timeout at the HTTP layer).
	ErrDownstream = errors.New("downstream unreachable")
	// ErrMalformed marks a downstream call that reported success but
	// returned no usable entity identifier.
	ErrMalformed = errors.New("malformed response")
	// ErrValidation marks inputs the downstream rejected as invalid.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or inconsistent configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrTimeout marks a downstream call that exceeded its own deadline.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks failures with no better classification; retryable.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails carries the operator-facing portion of a classified error.
type ErrorDetails struct {
	Message string
}

// Details extracts the human-readable message from an error produced by Wrap,
// stripping the sentinel prefix when present.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	msg := err.Error()
	for _, marker := range []error{ErrDownstream, ErrMalformed, ErrValidation, ErrConfiguration, ErrTimeout, ErrTransient} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return ErrorDetails{Message: strings.TrimPrefix(msg, prefix)}
		}
	}
	return ErrorDetails{Message: msg}
}

// IsUnreachable reports whether an error represents a downstream transport
// failure, including per-call timeouts.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrDownstream) || errors.Is(err, ErrTimeout)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
