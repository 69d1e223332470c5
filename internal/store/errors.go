package store

import (
	"errors"
	"fmt"
)

// FailureKind classifies store operation failures by condition.
type FailureKind int

const (
	// KindTransport covers gateway call rejections: network, server error, timeout.
	KindTransport FailureKind = iota + 1
	// KindNotFound marks a detail lookup that resolved to an absent record.
	KindNotFound
	// KindPrecondition marks a programming error such as attending with no
	// selected activity or no signed-in identity.
	KindPrecondition
	// KindConflict marks a mutation rejected because another mutation for the
	// same activity is still in flight.
	KindConflict
)

func (k FailureKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

// Failure is the result type returned by store operations that did not apply.
// The registry is always left untouched when a Failure is returned.
type Failure struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("store: %s: %s", f.Op, f.Kind)
	}
	return fmt.Sprintf("store: %s: %s: %v", f.Op, f.Kind, f.Err)
}

// Unwrap exposes the underlying cause for errors.Is chains.
func (f *Failure) Unwrap() error { return f.Err }

var (
	// ErrNoSelection signals an attendance call with no selected activity.
	ErrNoSelection = errors.New("no activity selected")
	// ErrNoIdentity signals a mutating call with no signed-in identity.
	ErrNoIdentity = errors.New("no signed-in identity")
	// ErrMutationInFlight signals an overlapping mutation for the same activity.
	ErrMutationInFlight = errors.New("mutation already in flight for activity")
)

// KindOf returns the failure kind carried by err, or zero when err is not a Failure.
func KindOf(err error) FailureKind {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind
	}
	return 0
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is an in-flight conflict failure.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

func failure(op string, kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Op: op, Err: err}
}
