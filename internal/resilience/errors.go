// Package resilience provides the failure taxonomy and retry pattern used
// around source-adapter calls.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// FailureKind classifies an adapter failure for retry and degradation policy.
type FailureKind string

const (
	// KindNotFound means the subject does not exist upstream. Terminal.
	KindNotFound FailureKind = "not_found"
	// KindRateLimited means upstream quota is exhausted. Terminal.
	KindRateLimited FailureKind = "rate_limited"
	// KindUnauthorized means credentials were rejected. Terminal.
	KindUnauthorized FailureKind = "unauthorized"
	// KindTransient means a network/timeout failure that is safe to retry.
	KindTransient FailureKind = "transient"
)

// StageError is a classified failure from a source adapter. Terminal kinds
// (not-found, rate-limited, unauthorized) short-circuit the retry wrapper;
// transient kinds are retried up to the attempt ceiling.
type StageError struct {
	Kind       FailureKind
	Stage      string
	StatusCode int
	Err        error
}

func (e *StageError) Error() string {
	msg := string(e.Kind)
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with a failure kind and the originating stage.
func NewStageError(kind FailureKind, stage string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

// ClassifyHTTPStatus maps an HTTP status code to a failure kind. 404 is
// not-found, 401/403 unauthorized, 429 rate-limited; everything else is
// transient so the retry ceiling still bounds it.
func ClassifyHTTPStatus(code int) FailureKind {
	switch code {
	case 404:
		return KindNotFound
	case 401, 403:
		return KindUnauthorized
	case 429:
		return KindRateLimited
	default:
		return KindTransient
	}
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (FailureKind, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// IsTerminal reports whether the error is a non-retryable failure class.
func IsTerminal(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	return kind == KindNotFound || kind == KindRateLimited || kind == KindUnauthorized
}

// IsNotFound reports whether the error chain carries a not-found failure.
func IsNotFound(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindNotFound
}

// IsRetryable reports whether the error may be retried: any classified
// transient failure, or an unclassified error matching common network
// failure patterns (timeouts, connection resets, DNS).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if kind, ok := KindOf(err); ok {
		return kind == KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
