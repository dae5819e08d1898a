package resource

import "schedsim/src/server/kernel"

type prioReleaseProtocol struct{}

// Creates a protocol that acquires first-come-first-served but hands a
// released resource to the waiter with the largest priority.
//
// Owners are never preempted and priorities are left alone.
func NewPrioRelease() Protocol {
	return prioReleaseProtocol{}
}

func (prioReleaseProtocol) Acquire(s *kernel.State, id int) (bool, error) {
	current, r, err := lookup(s, "acquire", id)
	if err != nil {
		return false, err
	}
	return grantOrBlock(s, current, r)
}

func (prioReleaseProtocol) Release(s *kernel.State, id int) error {
	return strictRelease(s, id, highestWaiter, false)
}
