package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError wraps an error that is safe to retry (e.g., 5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// RateLimitError signals that the endpoint rejected the call because a quota
// or requests-per-minute ceiling was hit.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return "rate limited: " + e.Err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError wraps err as a rate-limit signal.
func NewRateLimitError(err error) *RateLimitError {
	return &RateLimitError{Err: err}
}

// IsRateLimited reports whether err (or any error in its chain) is a
// RateLimitError.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsRetriable is the default retry predicate: rate limits and transient
// failures are retried, everything else is not.
func IsRetriable(err error) bool {
	return IsRateLimited(err) || IsTransient(err)
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient error patterns (network
// timeouts, connection resets, DNS failures).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
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

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"transport connection broken",
	"unexpected eof",
}

// rateLimitPatterns match provider messages that signal quota exhaustion
// without a usable status code.
var rateLimitPatterns = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"resource_exhausted",
	"quota",
}

// LooksRateLimited reports whether an error message reads like a quota or
// rate-limit rejection.
func LooksRateLimited(msg string) bool {
	msg = strings.ToLower(msg)
	for _, p := range rateLimitPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry. 429 is handled
// separately as a rate limit.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504, // Gateway Timeout
		529: // Overloaded
		return true
	default:
		return false
	}
}

// Classify maps an endpoint error and its HTTP status code (0 if unknown) to
// the retry taxonomy: 429 or a rate-limit message becomes a RateLimitError,
// a transient status becomes a TransientError, anything else is returned
// unchanged.
func Classify(err error, statusCode int) error {
	if err == nil {
		return nil
	}
	switch {
	case statusCode == 429:
		return NewRateLimitError(err)
	case IsTransientHTTPStatus(statusCode):
		return NewTransientError(err, statusCode)
	case statusCode == 0 && LooksRateLimited(err.Error()):
		return NewRateLimitError(err)
	}
	return err
}
