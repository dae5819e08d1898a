package scheduler

import (
	"schedsim/src/model"
	"schedsim/src/server/kernel"
)

type sjfPolicy struct{}

// Creates a new shortest-job-first policy.
//
// Non-preemptive: the current process keeps the CPU while it has work left.
// Otherwise the ready process with the shortest lifespan runs.
func NewSJF() Policy {
	return sjfPolicy{}
}

func (sjfPolicy) Schedule(s *kernel.State) (model.Handle, error) {
	if runnableCurrent(s) != nil {
		return s.Current, nil
	}

	sj := FindProcess(s, s.ReadyQueue(), SMALLEST, Lifespan)
	if sj == model.None {
		return model.None, nil
	}
	return take(s, sj)
}
