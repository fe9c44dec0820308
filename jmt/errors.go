package jmt

import (
	"errors"
	"fmt"
)

// Kind enumerates the JMT core's error taxonomy.
type Kind int

const (
	// KindNotFound means the key has no Some value at the requested
	// version.
	KindNotFound Kind = iota
	// KindVersionNotMonotone means a mutation was requested at a version
	// <= the tree's latest known version.
	KindVersionNotMonotone
	// KindStaleRead means a read was requested at a version older than
	// the oldest retained history.
	KindStaleRead
	// KindProofMismatch means proof verification failed.
	KindProofMismatch
	// KindCorruptNode means a persisted node could not be decoded or
	// failed a self-check.
	KindCorruptNode
	// KindBackend means the underlying storage backend returned an
	// error.
	KindBackend
	// KindCodec means a user-type encode/decode failure occurred.
	KindCodec
	// KindOther is a catch-all for wrapper adapters.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindVersionNotMonotone:
		return "VersionNotMonotone"
	case KindStaleRead:
		return "StaleRead"
	case KindProofMismatch:
		return "ProofMismatch"
	case KindCorruptNode:
		return "CorruptNode"
	case KindBackend:
		return "Backend"
	case KindCodec:
		return "Codec"
	case KindOther:
		return "Other"
	default:
		return "Unknown"
	}
}

// Error is the JMT core's error value: a Kind plus an optional wrapped
// cause. No exceptions escape the core; every failure path returns one of
// these.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, jmt.ErrNotFound) style checks via the sentinels
// below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func wrapErr(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Sentinel errors for errors.Is comparisons against a specific Kind,
// ignoring Msg/Err.
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrVersionNotMonotone = &Error{Kind: KindVersionNotMonotone}
	ErrStaleRead          = &Error{Kind: KindStaleRead}
	ErrProofMismatch      = &Error{Kind: KindProofMismatch}
	ErrCorruptNode        = &Error{Kind: KindCorruptNode}
)

// backendError wraps a lower-level storage error as KindBackend, unless it
// is already a *Error (e.g. propagated from a nested jmt.Tree), in which
// case it is passed through unchanged.
func backendError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return wrapErr(KindBackend, "storage backend error", err)
}
