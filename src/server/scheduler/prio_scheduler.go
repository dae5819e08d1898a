package scheduler

import (
	"schedsim/src/model"
	"schedsim/src/server/kernel"
)

type priorityPolicy struct{}

// Creates a new preemptive priority policy.
//
// The ready process with the largest priority preempts the current one when
// its priority is larger or equal. Equal priorities preempt, so peers take
// turns like round-robin.
func NewPriority() Policy {
	return priorityPolicy{}
}

func (priorityPolicy) Schedule(s *kernel.State) (model.Handle, error) {
	highest := FindProcess(s, s.ReadyQueue(), LARGEST, Priority)
	if highest == model.None {
		return keepOrIdle(s), nil
	}

	current := s.CurrentProcess()
	if current == nil || current.Status == model.BLOCKED {
		return take(s, highest)
	}

	if s.Process(highest).Priority >= current.Priority {
		if !current.Finished() {
			if err := s.Requeue(s.Current); err != nil {
				return model.None, err
			}
		}
		return take(s, highest)
	}

	if !current.Finished() {
		return s.Current, nil
	}
	return take(s, highest)
}
