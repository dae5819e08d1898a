package resource

import "schedsim/src/server/kernel"

type pipProtocol struct{}

// Creates the priority inheritance protocol.
//
// An owner with a lower priority than the requester inherits the priority
// of the requester until it releases. Waiters are served first come first
// served.
func NewPIP() Protocol {
	return pipProtocol{}
}

func (pipProtocol) Acquire(s *kernel.State, id int) (bool, error) {
	current, r, err := lookup(s, "acquire", id)
	if err != nil {
		return false, err
	}

	if r.Owned() {
		if owner := s.Process(r.Owner); owner.Priority < current.Priority {
			owner.Priority = current.Priority
		}
	}

	return grantOrBlock(s, current, r)
}

func (pipProtocol) Release(s *kernel.State, id int) error {
	return strictRelease(s, id, firstWaiter, true)
}
