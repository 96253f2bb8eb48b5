package engine

import (
	"errors"
	"fmt"
)

// Fault kinds. Every error returned by Engine.Next other than io.EOF is a
// *FaultError whose Kind is one of these.
var (
	// ErrConnection covers provider dial, subscribe and transport failures.
	ErrConnection = errors.New("provider connection error")

	// ErrProtocolViolation is raised when the provider breaks a stream invariant.
	ErrProtocolViolation = errors.New("provider protocol violation")

	// ErrDecode is raised when a matched event cannot be decoded.
	ErrDecode = errors.New("event decode error")

	// ErrStore is raised when the ledger cannot be read or written.
	ErrStore = errors.New("ledger store error")
)

// FaultError is the terminal error of an engine. It matches both its Kind and
// its cause with errors.Is.
type FaultError struct {
	Kind  error
	State State
	Err   error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%v while %s: %v", e.Kind, e.State, e.Err)
}

func (e *FaultError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func protocolViolation(format string, args ...any) error {
	return &FaultError{Kind: ErrProtocolViolation, State: StateStreaming, Err: fmt.Errorf(format, args...)}
}

// IsRetryable reports whether restarting the engine may get past err.
// Decode errors and protocol violations would repeat on the same data.
func IsRetryable(err error) bool {
	var fault *FaultError
	if !errors.As(err, &fault) {
		return false
	}
	return errors.Is(fault.Kind, ErrConnection) || errors.Is(fault.Kind, ErrStore)
}
