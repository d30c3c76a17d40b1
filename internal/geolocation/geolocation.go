// Package geolocation normalizes device location lookups into a position or
// a categorized Failure. A failure never touches the report form.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration // how old a cached fix may be
}

func DefaultOptions() Options {
	return Options{
		HighAccuracy: true,
		Timeout:      15 * time.Second,
		MaximumAge:   60 * time.Second,
	}
}

type Position struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Accuracy  float64   `json:"accuracy,omitempty"` // meters
	Timestamp time.Time `json:"timestamp"`
}

// ErrorCode mirrors the platform geolocation error codes.
type ErrorCode int

const (
	CodePermissionDenied    ErrorCode = 1
	CodePositionUnavailable ErrorCode = 2
	CodeTimeout             ErrorCode = 3
)

// PositionError is what a Locator returns when the platform refuses.
type PositionError struct {
	Code    ErrorCode
	Message string
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("geolocation error %d: %s", e.Code, e.Message)
}

type Locator interface {
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
}

type FailureKind string

const (
	PermissionDenied    FailureKind = "permission_denied"
	PositionUnavailable FailureKind = "position_unavailable"
	Timeout             FailureKind = "timeout"
	Unsupported         FailureKind = "unsupported"
)

var failureMessages = map[FailureKind]string{
	PermissionDenied:    "Location permission denied. Allow location access in your settings or enter coordinates manually.",
	PositionUnavailable: "Location unavailable. Check that device location is on, or enter coordinates manually.",
	Timeout:             "Location request timed out. Try again or enter coordinates manually.",
	Unsupported:         "Location is not supported here. Please enter coordinates manually.",
}

type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return string(f.Kind)
}

func (f *Failure) Unwrap() error { return f.Err }

func newFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Message: failureMessages[kind], Err: err}
}

// Classify maps any locator error onto the failure taxonomy.
func Classify(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	var pe *PositionError
	if errors.As(err, &pe) {
		switch pe.Code {
		case CodePermissionDenied:
			return newFailure(PermissionDenied, err)
		case CodeTimeout:
			return newFailure(Timeout, err)
		default:
			return newFailure(PositionUnavailable, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newFailure(Timeout, err)
	}
	return newFailure(PositionUnavailable, err)
}

// Acquirer wraps a Locator with the timeout and the cached-fix tolerance.
type Acquirer struct {
	locator Locator
	opts    Options
	now     func() time.Time

	mu   sync.Mutex
	last *Position
}

func NewAcquirer(locator Locator, opts Options) *Acquirer {
	return &Acquirer{
		locator: locator,
		opts:    opts,
		now:     time.Now,
	}
}

// Acquire returns a position or a *Failure. A nil locator means the
// environment has no location API at all. A fix younger than MaximumAge is
// reused without asking the locator.
func (a *Acquirer) Acquire(ctx context.Context) (Position, error) {
	if cached, ok := a.cached(); ok {
		return cached, nil
	}
	return a.AcquireWith(ctx, a.locator)
}

// AcquireWith asks a locator supplied per call, such as a reading the
// browser just delivered. It never answers from the cache.
func (a *Acquirer) AcquireWith(ctx context.Context, locator Locator) (Position, error) {
	if locator == nil {
		return Position{}, newFailure(Unsupported, nil)
	}

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	pos, err := locator.CurrentPosition(ctx, a.opts)
	if err != nil {
		return Position{}, Classify(err)
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = a.now()
	}

	a.mu.Lock()
	a.last = &pos
	a.mu.Unlock()
	return pos, nil
}

func (a *Acquirer) cached() (Position, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil || a.opts.MaximumAge <= 0 {
		return Position{}, false
	}
	if a.now().Sub(a.last.Timestamp) > a.opts.MaximumAge {
		return Position{}, false
	}
	return *a.last, true
}
