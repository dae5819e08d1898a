package resource

import (
	"schedsim/src/model"
	"schedsim/src/server/kernel"
	"schedsim/src/server/scheduler"
)

// A resource arbitration protocol.
//
// Both methods act on behalf of the current process. This interface is not
// thread-safe.
type Protocol interface {
	// Acquire resource id.
	//
	// Returns false if the current process was blocked and appended to the
	// wait queue; the caller must schedule right away.
	Acquire(s *kernel.State, id int) (bool, error)

	// Release resource id and wake at most one waiter.
	Release(s *kernel.State, id int) error
}

// Chooses the waiter to wake from a non-empty wait queue.
type waiterPicker func(s *kernel.State, q *kernel.Queue) model.Handle

func firstWaiter(_ *kernel.State, q *kernel.Queue) model.Handle {
	h, _ := q.Peek()
	return h
}

func highestWaiter(s *kernel.State, q *kernel.Queue) model.Handle {
	return scheduler.FindProcess(s, q, scheduler.LARGEST, scheduler.Priority)
}

// Resolve the current process and resource id for op.
func lookup(s *kernel.State, op string, id int) (*model.Process, *model.Resource, error) {
	r, err := s.Resource(id)
	if err != nil {
		return nil, nil, err
	}

	current := s.CurrentProcess()
	if current == nil {
		return nil, nil, kernel.Violation(op, model.None, id, "no current process")
	}
	if current.Status != model.RUNNING {
		return nil, nil, kernel.Violation(op, current.PID, id, "current process is %s", current.Status)
	}

	return current, r, nil
}

// The first-come-first-served core shared by every protocol: take a free
// resource, otherwise block at the tail of the wait queue.
func grantOrBlock(s *kernel.State, current *model.Process, r *model.Resource) (bool, error) {
	if !r.Owned() {
		r.Owner = current.PID
		return true, nil
	}

	if r.Owner == current.PID {
		return false, kernel.Violation("acquire", current.PID, r.ID, "resource already owned by the requester")
	}

	if err := s.Block(current.PID, r.ID); err != nil {
		return false, err
	}
	return false, nil
}

// Un-own r and wake one waiter picked by pick.
func wakeOne(s *kernel.State, r *model.Resource, pick waiterPicker) error {
	r.Owner = model.None

	wq := s.WaitQueue(r.ID)
	if wq.IsEmpty() {
		return nil
	}

	return s.Wake(pick(s, wq))
}

// Release for protocols where only the owner may release.
func strictRelease(s *kernel.State, id int, pick waiterPicker, restore bool) error {
	current, r, err := lookup(s, "release", id)
	if err != nil {
		return err
	}

	if r.Owner != current.PID {
		return kernel.Violation("release", current.PID, id, "resource owned by %d", r.Owner)
	}

	if restore {
		current.Priority = current.PriorityBase
	}

	return wakeOne(s, r, pick)
}
