package scheduler

import (
	"schedsim/src/model"
	"schedsim/src/server/kernel"
)

// A CPU scheduling policy.
//
// This interface is not thread-safe. It is called once per tick.
type Policy interface {
	// Pick the process to run for the next tick.
	//
	// The returned process is no longer linked into any queue; committing it
	// to the current slot is up to the caller (see kernel.State.Dispatch).
	// Returns model.None if the CPU idles.
	Schedule(s *kernel.State) (model.Handle, error)
}

// Detach h from the ready queue and return it.
func take(s *kernel.State, h model.Handle) (model.Handle, error) {
	if err := s.Unlink(h); err != nil {
		return model.None, err
	}
	return h, nil
}

// The current process if it can keep the CPU, or nil.
func runnableCurrent(s *kernel.State) *model.Process {
	if current := s.CurrentProcess(); current != nil && current.Runnable() {
		return current
	}
	return nil
}

// Current when it is still runnable, model.None otherwise.
func keepOrIdle(s *kernel.State) model.Handle {
	if runnableCurrent(s) != nil {
		return s.Current
	}
	return model.None
}
