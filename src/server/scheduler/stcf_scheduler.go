package scheduler

import (
	"schedsim/src/model"
	"schedsim/src/server/kernel"
)

type stcfPolicy struct{}

// Creates a new shortest-time-to-completion-first policy.
//
// Preemptive: a ready process with strictly less remaining work than the
// current one takes the CPU, and the current one goes back to the head of
// the ready queue.
func NewSTCF() Policy {
	return stcfPolicy{}
}

func (stcfPolicy) Schedule(s *kernel.State) (model.Handle, error) {
	stc := FindProcess(s, s.ReadyQueue(), SMALLEST, Remaining)
	if stc == model.None {
		return keepOrIdle(s), nil
	}

	current := s.CurrentProcess()
	if current == nil || current.Status == model.BLOCKED {
		return take(s, stc)
	}

	if s.Process(stc).Remaining() < current.Remaining() {
		if _, err := take(s, stc); err != nil {
			return model.None, err
		}
		if err := s.RequeueFront(s.Current); err != nil {
			return model.None, err
		}
		return stc, nil
	}

	if !current.Finished() {
		return s.Current, nil
	}
	return take(s, stc)
}
