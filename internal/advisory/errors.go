package advisory

import (
	"context"
	"errors"

	"github.com/sells-group/followup-cli/internal/model"
	"github.com/sells-group/followup-cli/internal/resilience"
)

// ErrUnavailable matches every UnavailableError via errors.Is.
var ErrUnavailable = errors.New("advisory unavailable")

// UnavailableError means no advisory could be obtained: retries were
// exhausted or the endpoint returned a non-retriable error.
type UnavailableError struct {
	Attempts int
	// RateLimited is set when the last failure was a rate-limit signal.
	RateLimited bool
	Err         error
}

func (e *UnavailableError) Error() string {
	msg := "advisory unavailable"
	if e.RateLimited {
		msg += " (rate limited)"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrUnavailable) true.
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

func newUnavailable(attempts int, err error) *UnavailableError {
	return &UnavailableError{
		Attempts:    attempts,
		RateLimited: resilience.IsRateLimited(err),
		Err:         err,
	}
}

// ParseError means the model's answer could not be split into sections even
// after a stricter retry. It accompanies a degraded result.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return "advisory response malformed: " + e.Reason
}

// Kind maps an Advise error to the outcome error kind.
func Kind(err error) model.ErrorKind {
	var pe *ParseError
	var ue *UnavailableError
	switch {
	case err == nil:
		return model.ErrorKindNone
	case errors.Is(err, context.Canceled):
		return model.ErrorKindCanceled
	case errors.As(err, &pe):
		return model.ErrorKindParse
	case errors.As(err, &ue):
		return model.ErrorKindAdvisoryUnavailable
	case resilience.IsRateLimited(err):
		return model.ErrorKindRateLimited
	}
	return model.ErrorKindAdvisoryUnavailable
}
