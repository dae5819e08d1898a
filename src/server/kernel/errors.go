package kernel

import (
	"errors"
	"fmt"
	"schedsim/src/model"
)

// ErrInvariant marks a broken simulator invariant. It indicates a bug in a
// policy, a protocol or the driver and aborts the simulation.
var ErrInvariant = errors.New("invariant violation")

// ErrRegistryFull is returned by Spawn when every process slot is taken.
var ErrRegistryFull = errors.New("process registry is full")

type InvariantError struct {
	Op       string
	PID      model.Handle
	Resource int
	Reason   string
}

func (e *InvariantError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Reason)
	if e.PID != model.None {
		msg += fmt.Sprintf(" (pid %d)", e.PID)
	}
	if e.Resource >= 0 {
		msg += fmt.Sprintf(" (resource %d)", e.Resource)
	}
	return msg
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

// Violation builds an *InvariantError. Pass model.None and -1 when no process
// or resource is involved.
func Violation(op string, pid model.Handle, resource int, format string, args ...any) error {
	return &InvariantError{
		Op:       op,
		PID:      pid,
		Resource: resource,
		Reason:   fmt.Sprintf(format, args...),
	}
}
