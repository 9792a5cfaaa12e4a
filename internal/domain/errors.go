package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// ConfigurationError means a provider could not even attempt a call.
type ConfigurationError struct {
	Provider Source
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: configuration: %s", e.Provider, e.Reason)
}

// ProviderError is a non-2xx response or an unusable payload.
type ProviderError struct {
	Provider   Source
	Status     int
	Code       string // provider status string, e.g. Google's REQUEST_DENIED
	Malformed  bool
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: status %d", e.Provider, e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Malformed {
		b.WriteString(": malformed payload")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the status is worth another attempt.
func (e *ProviderError) Retryable() bool {
	return e.Status == 429 || (e.Status >= 500 && e.Status <= 599)
}

// TransportError wraps network-level failures, timeouts included.
type TransportError struct {
	Provider Source
	Err      error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: transport: %v", e.Provider, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// AggregateExhaustedError is returned when every provider failed and
// fallback data is disabled.
type AggregateExhaustedError struct {
	Failures map[Source]error
}

func (e *AggregateExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return "all providers failed: no providers configured"
	}
	keys := make([]string, 0, len(e.Failures))
	for k := range e.Failures {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Failures[Source(k)].Error())
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

func (e *AggregateExhaustedError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, err := range e.Failures {
		out = append(out, err)
	}
	return out
}

// StatusOf extracts an HTTP-ish status for logging and the failure log.
// 0 means no status is known (configuration, transport).
func StatusOf(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Status
	}
	return 0
}

// KindOf names the error class: configuration|provider|transport|other.
func KindOf(err error) string {
	var ce *ConfigurationError
	var pe *ProviderError
	var te *TransportError
	switch {
	case errors.As(err, &ce):
		return "configuration"
	case errors.As(err, &pe):
		return "provider"
	case errors.As(err, &te):
		return "transport"
	default:
		return "other"
	}
}
