package scheduler

import (
	"schedsim/src/model"
	"schedsim/src/server/kernel"
)

type fifoPolicy struct{}

// Creates a new FIFO policy.
//
// The current process runs to completion unless it blocks; then the oldest
// ready process is served.
func NewFIFO() Policy {
	return fifoPolicy{}
}

func (fifoPolicy) Schedule(s *kernel.State) (model.Handle, error) {
	if runnableCurrent(s) != nil {
		return s.Current, nil
	}

	next, ok := s.ReadyQueue().Peek()
	if !ok {
		return model.None, nil
	}
	return take(s, next)
}
