// Package kerr defines the error taxonomy of the graphics bootstrap.
//
// Every failure surfaced by the acquirer, the window registry, the loader or
// the spawner is a *Error carrying one of the Kind values below. Callers
// compare against the kind sentinels with errors.Is:
//
//	if errors.Is(err, kerr.ErrAlreadyClaimed) { ... }
//
// None of these kinds are transient. Callers must not retry automatically.
package kerr

import (
	"errors"
	"fmt"
)

// Kind classifies a bootstrap error
type Kind int

const (
	Unknown Kind = iota
	HardwareAbsent
	InvalidAddress
	InvalidGeometry
	MappingFailure
	AlreadyInitialized
	NotReady
	AlreadyClaimed
	ApplicationNotFound
	SpawnFailure
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case HardwareAbsent:
		return "hardware absent"
	case InvalidAddress:
		return "invalid address"
	case InvalidGeometry:
		return "invalid geometry"
	case MappingFailure:
		return "mapping failure"
	case AlreadyInitialized:
		return "already initialized"
	case NotReady:
		return "not ready"
	case AlreadyClaimed:
		return "already claimed"
	case ApplicationNotFound:
		return "application not found"
	case SpawnFailure:
		return "spawn failure"
	default:
		return "unknown"
	}
}

// Error describes a bootstrap error.
type Error struct {
	// Kind of failure.
	Kind Kind

	// The component where the error occurred.
	Module string

	// Human readable detail.
	Message string

	// Underlying cause, if any.
	Err error
}

var (
	ErrHardwareAbsent      = &Error{Kind: HardwareAbsent}
	ErrInvalidAddress      = &Error{Kind: InvalidAddress}
	ErrInvalidGeometry     = &Error{Kind: InvalidGeometry}
	ErrMappingFailure      = &Error{Kind: MappingFailure}
	ErrAlreadyInitialized  = &Error{Kind: AlreadyInitialized}
	ErrNotReady            = &Error{Kind: NotReady}
	ErrAlreadyClaimed      = &Error{Kind: AlreadyClaimed}
	ErrApplicationNotFound = &Error{Kind: ApplicationNotFound}
	ErrSpawnFailure        = &Error{Kind: SpawnFailure}
)

// New creates an error of the given kind.
func New(kind Kind, module, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Module: module, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around cause.
func Wrap(kind Kind, module string, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Module: module, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Module != "" {
		msg = e.Module + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind, so the package sentinels work
// with errors.Is regardless of module and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
