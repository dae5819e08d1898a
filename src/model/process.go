package model

import "fmt"

// A simulated process.
//
// Priority is the effective priority. PriorityBase is the value the process
// was created with and the one it returns to once aging, inheritance or a
// ceiling stops applying.
type Process struct {
	PID          Handle
	Lifespan     int
	Age          int
	Status       Status
	Priority     int
	PriorityBase int

	// Maintained by the kernel; never set it directly.
	Queue QueueID
}

// Creates a ready process that is not linked into any queue.
func NewProcess(pid Handle, lifespan int, priority int) Process {
	return Process{
		PID:          pid,
		Lifespan:     lifespan,
		Status:       READY,
		Priority:     priority,
		PriorityBase: priority,
		Queue:        NoQueue,
	}
}

// Ticks left before the process completes.
func (p *Process) Remaining() int {
	return p.Lifespan - p.Age
}

// A finished process is terminal: it is never scheduled or enqueued again.
func (p *Process) Finished() bool {
	return p.Remaining() <= 0
}

// Runnable reports whether the process can keep the CPU.
func (p *Process) Runnable() bool {
	return p.Status != BLOCKED && !p.Finished()
}

func (p *Process) String() string {
	return fmt.Sprintf("%d (%d/%d, prio %d/%d, %s)",
		p.PID, p.Age, p.Lifespan, p.Priority, p.PriorityBase, p.Status)
}

// An exclusive resource.
type Resource struct {
	ID    int
	Owner Handle
}

func NewResource(id int) Resource {
	return Resource{ID: id, Owner: None}
}

func (r *Resource) Owned() bool {
	return r.Owner != None
}
