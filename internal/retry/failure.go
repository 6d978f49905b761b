package retry

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the closed set of upstream failure classes.
type Kind string

const (
	KindTimeout         Kind = "timeout"
	KindRateLimited     Kind = "rate_limited"
	KindTransient       Kind = "transient"
	KindAPIError        Kind = "api_error"
	KindQualityRejected Kind = "quality_rejected"
	KindNotFound        Kind = "not_found"
	KindAuth            Kind = "auth"
	KindUnknown         Kind = "unknown"
)

// ErrExhaustedRetries wraps the last failure once the attempt budget is spent.
var ErrExhaustedRetries = errors.New("retries exhausted")

// Failure is a classified upstream error.
type Failure struct {
	Kind Kind
	Err  error
	// ResetAt is the upstream-asserted time at which a rate limit lifts.
	ResetAt time.Time
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Retryable reports whether another attempt could succeed.
func (f *Failure) Retryable() bool {
	return f.Kind != KindNotFound && f.Kind != KindAuth
}

// New wraps err as a failure of the given kind.
func New(kind Kind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// RateLimited wraps err as a rate-limit failure that lifts at resetAt.
// A zero resetAt means the upstream gave no reset time.
func RateLimited(err error, resetAt time.Time) *Failure {
	return &Failure{Kind: KindRateLimited, Err: err, ResetAt: resetAt}
}

// Classify returns the *Failure inside err. Errors that were never
// classified come back as KindUnknown so callers can count them apart.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: KindUnknown, Err: err}
}

// IsKind reports whether err carries a failure of the given kind.
func IsKind(err error, kind Kind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == kind
}
