package resource

import "schedsim/src/server/kernel"

type pcpProtocol struct{}

// Creates the priority ceiling protocol.
//
// Taking a free resource raises the requester to s.MaxPriority; asking for
// a taken one raises its owner instead. Waiters are then served first come
// first served, and a release restores the base priority of the releaser.
func NewPCP() Protocol {
	return pcpProtocol{}
}

func (pcpProtocol) Acquire(s *kernel.State, id int) (bool, error) {
	current, r, err := lookup(s, "acquire", id)
	if err != nil {
		return false, err
	}

	if !r.Owned() {
		current.Priority = s.MaxPriority
	} else {
		s.Process(r.Owner).Priority = s.MaxPriority
	}

	return grantOrBlock(s, current, r)
}

func (pcpProtocol) Release(s *kernel.State, id int) error {
	return strictRelease(s, id, firstWaiter, true)
}
