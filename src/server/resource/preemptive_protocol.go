package resource

import (
	"schedsim/src/model"
	"schedsim/src/server/kernel"
)

type preemptiveProtocol struct{}

// Creates the priority-preemptive protocol.
//
// A requester with a strictly larger priority than the owner takes the
// resource away: the owner is blocked on the resource and re-acquires it
// when it runs again. Releases wake the waiter with the largest priority.
//
// Since ownership can vanish under a process, releasing a resource the
// current process does not own is a no-op.
func NewPreemptive() Protocol {
	return preemptiveProtocol{}
}

func (preemptiveProtocol) Acquire(s *kernel.State, id int) (bool, error) {
	current, r, err := lookup(s, "acquire", id)
	if err != nil {
		return false, err
	}

	if !r.Owned() || r.Owner == current.PID {
		return grantOrBlock(s, current, r)
	}

	owner := s.Process(r.Owner)
	if current.Priority <= owner.Priority {
		return grantOrBlock(s, current, r)
	}

	r.Owner = current.PID

	// A process waits in one queue at a time. An owner already blocked on
	// another resource just loses this one.
	if owner.Status != model.BLOCKED {
		if err := s.Block(owner.PID, id); err != nil {
			return false, err
		}
	}

	return true, nil
}

func (preemptiveProtocol) Release(s *kernel.State, id int) error {
	current, r, err := lookup(s, "release", id)
	if err != nil {
		return err
	}

	if r.Owner != current.PID {
		return nil
	}

	return wakeOne(s, r, highestWaiter)
}
