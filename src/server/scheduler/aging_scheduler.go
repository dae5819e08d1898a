package scheduler

import (
	"schedsim/src/model"
	"schedsim/src/server/kernel"
)

type agingPolicy struct {
	priority Policy
}

// Creates a new priority policy with aging.
//
// Decisions are the ones of NewPriority. Afterwards every process left in
// the ready queue gains one priority step, up to s.MaxPriority, and the
// chosen process falls back to its base priority.
func NewPriorityAging() Policy {
	return agingPolicy{priority: NewPriority()}
}

func (a agingPolicy) Schedule(s *kernel.State) (model.Handle, error) {
	next, err := a.priority.Schedule(s)
	if err != nil || next == model.None {
		return next, err
	}

	ready := s.ReadyQueue()
	for i := 0; i < ready.Len(); i++ {
		h := ready.At(i)
		if h == next {
			continue
		}
		if p := s.Process(h); p.Priority < s.MaxPriority {
			p.Priority++
		}
	}

	p := s.Process(next)
	p.Priority = p.PriorityBase

	return next, nil
}
