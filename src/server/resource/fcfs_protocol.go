package resource

import "schedsim/src/server/kernel"

type fcfsProtocol struct{}

// Creates the default first-come-first-served protocol.
//
// Requests are served in arrival order without looking at priorities.
func NewFCFS() Protocol {
	return fcfsProtocol{}
}

func (fcfsProtocol) Acquire(s *kernel.State, id int) (bool, error) {
	current, r, err := lookup(s, "acquire", id)
	if err != nil {
		return false, err
	}
	return grantOrBlock(s, current, r)
}

func (fcfsProtocol) Release(s *kernel.State, id int) error {
	return strictRelease(s, id, firstWaiter, false)
}
