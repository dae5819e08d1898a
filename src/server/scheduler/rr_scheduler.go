package scheduler

import (
	"schedsim/src/model"
	"schedsim/src/server/kernel"
)

type rrPolicy struct{}

// Creates a new round-robin policy with a one tick time slice.
//
// An unfinished current process yields to the tail of the ready queue and
// the head runs. With nobody waiting the current process keeps running.
func NewRR() Policy {
	return rrPolicy{}
}

func (rrPolicy) Schedule(s *kernel.State) (model.Handle, error) {
	next, ok := s.ReadyQueue().Peek()
	if !ok {
		return keepOrIdle(s), nil
	}

	if runnableCurrent(s) != nil {
		if err := s.Requeue(s.Current); err != nil {
			return model.None, err
		}
	}

	return take(s, next)
}
