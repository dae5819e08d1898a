package kernel

import (
	"fmt"
	"schedsim/src/model"
	"schedsim/src/server/scheduler/datastructures"
)

// Queue of process handles. Iteration order is enqueue order.
type Queue = datastructures.CircularQueue[model.Handle]

type resourceSlot struct {
	model.Resource
	waitqueue Queue
}

// State is the simulated machine: process registry, ready queue, resource
// table, current slot and clock. Every policy and protocol receives it
// explicitly.
//
// The registry and every queue are sized once by NewState.
//
// This type is not thread-safe.
type State struct {
	// Monotonically increasing tick counter, advanced by the driver.
	Ticks int
	// The process occupying the CPU, or model.None.
	Current model.Handle
	// Upper bound for aging and the ceiling of the ceiling protocol.
	MaxPriority int

	processes []model.Process
	ready     Queue
	resources []resourceSlot
}

func NewState(capacity int, nrResources int, maxPriority int) *State {
	resources := make([]resourceSlot, nrResources)
	for i := range resources {
		resources[i] = resourceSlot{
			Resource:  model.NewResource(i),
			waitqueue: datastructures.NewCircularQueue[model.Handle](capacity),
		}
	}

	return &State{
		Current:     model.None,
		MaxPriority: maxPriority,
		processes:   make([]model.Process, 0, capacity),
		ready:       datastructures.NewCircularQueue[model.Handle](capacity),
		resources:   resources,
	}
}

// Spawn registers a new process and appends it to the ready queue.
func (s *State) Spawn(lifespan int, priority int) (model.Handle, error) {
	if len(s.processes) == cap(s.processes) {
		return model.None, ErrRegistryFull
	}
	if lifespan <= 0 {
		return model.None, fmt.Errorf("lifespan must be positive, got %d", lifespan)
	}
	if priority < 0 || priority > s.MaxPriority {
		return model.None, fmt.Errorf("priority %d outside [0, %d]", priority, s.MaxPriority)
	}

	h := model.Handle(len(s.processes))
	s.processes = append(s.processes, model.NewProcess(h, lifespan, priority))

	if err := s.Enqueue(model.ReadyQueue, h); err != nil {
		return model.None, err
	}
	return h, nil
}

// Process returns the record for h, or nil for an unknown handle.
func (s *State) Process(h model.Handle) *model.Process {
	if h < 0 || int(h) >= len(s.processes) {
		return nil
	}
	return &s.processes[h]
}

// Number of spawned processes.
func (s *State) Processes() int {
	return len(s.processes)
}

// CurrentProcess returns the running process, or nil when idle.
func (s *State) CurrentProcess() *model.Process {
	return s.Process(s.Current)
}

func (s *State) Resource(id int) (*model.Resource, error) {
	if id < 0 || id >= len(s.resources) {
		return nil, Violation("resource", model.None, id, "no such resource, table has %d", len(s.resources))
	}
	return &s.resources[id].Resource, nil
}

func (s *State) Resources() int {
	return len(s.resources)
}

func (s *State) ReadyQueue() *Queue {
	return &s.ready
}

// WaitQueue returns the wait queue of resource id, or nil for an unknown id.
func (s *State) WaitQueue(id int) *Queue {
	if id < 0 || id >= len(s.resources) {
		return nil
	}
	return &s.resources[id].waitqueue
}

func (s *State) queue(q model.QueueID) *Queue {
	if q == model.ReadyQueue {
		return &s.ready
	}
	return s.WaitQueue(int(q))
}

// Enqueue appends h at the tail of queue q.
func (s *State) Enqueue(q model.QueueID, h model.Handle) error {
	return s.link(q, h, false)
}

// EnqueueFront inserts h at the head of queue q.
func (s *State) EnqueueFront(q model.QueueID, h model.Handle) error {
	return s.link(q, h, true)
}

func (s *State) link(q model.QueueID, h model.Handle, front bool) error {
	p := s.Process(h)
	if p == nil {
		return Violation("enqueue", h, -1, "unknown process")
	}
	if p.Queue != model.NoQueue {
		return Violation("enqueue", h, -1, "already linked into %s", p.Queue)
	}
	if p.Finished() {
		return Violation("enqueue", h, -1, "finished process cannot be enqueued")
	}
	if h == s.Current && p.Status == model.RUNNING {
		return Violation("enqueue", h, -1, "running process must stay out of queues")
	}

	queue := s.queue(q)
	if queue == nil {
		return Violation("enqueue", h, int(q), "no such queue")
	}

	var ok bool
	if front {
		ok = queue.EnqueueFront(h)
	} else {
		ok = queue.Enqueue(h)
	}
	if !ok {
		return Violation("enqueue", h, -1, "%s is full", q)
	}

	p.Queue = q
	return nil
}

// Unlink removes h from whichever queue holds it. Unlinking a process that
// is in no queue is a no-op.
func (s *State) Unlink(h model.Handle) error {
	p := s.Process(h)
	if p == nil {
		return Violation("unlink", h, -1, "unknown process")
	}
	if p.Queue == model.NoQueue {
		return nil
	}
	if !s.queue(p.Queue).Remove(h) {
		return Violation("unlink", h, -1, "not found in %s", p.Queue)
	}
	p.Queue = model.NoQueue
	return nil
}

// Requeue puts h back at the tail of the ready queue as READY.
func (s *State) Requeue(h model.Handle) error {
	return s.makeReady(h, false)
}

// RequeueFront puts h back at the head of the ready queue as READY.
func (s *State) RequeueFront(h model.Handle) error {
	return s.makeReady(h, true)
}

func (s *State) makeReady(h model.Handle, front bool) error {
	p := s.Process(h)
	if p == nil {
		return Violation("requeue", h, -1, "unknown process")
	}
	status := p.Status
	p.Status = model.READY
	if err := s.link(model.ReadyQueue, h, front); err != nil {
		p.Status = status
		return err
	}
	return nil
}

// Block moves h to the tail of the wait queue of resource id as BLOCKED.
func (s *State) Block(h model.Handle, id int) error {
	p := s.Process(h)
	if p == nil {
		return Violation("block", h, id, "unknown process")
	}
	if err := s.Unlink(h); err != nil {
		return err
	}
	status := p.Status
	p.Status = model.BLOCKED
	if err := s.link(model.QueueID(id), h, false); err != nil {
		p.Status = status
		return err
	}
	return nil
}

// Wake takes a waiter out of its wait queue and appends it to the ready
// queue.
func (s *State) Wake(h model.Handle) error {
	p := s.Process(h)
	if p == nil {
		return Violation("wake", h, -1, "unknown process")
	}
	if p.Status != model.BLOCKED {
		return Violation("wake", h, -1, "waiter is %s, not blocked", p.Status)
	}
	if err := s.Unlink(h); err != nil {
		return err
	}
	return s.Requeue(h)
}

// Dispatch makes h the current process. h must already be out of every
// queue. A replaced current that finished becomes EXITED. model.None idles
// the CPU.
func (s *State) Dispatch(h model.Handle) error {
	if prev := s.CurrentProcess(); prev != nil && h != s.Current && prev.Finished() {
		prev.Status = model.EXITED
	}

	if h == model.None {
		s.Current = model.None
		return nil
	}

	p := s.Process(h)
	if p == nil {
		return Violation("dispatch", h, -1, "unknown process")
	}
	if p.Queue != model.NoQueue {
		return Violation("dispatch", h, -1, "still linked into %s", p.Queue)
	}
	if p.Finished() {
		return Violation("dispatch", h, -1, "finished process cannot run")
	}
	if p.Status == model.BLOCKED {
		return Violation("dispatch", h, -1, "blocked process cannot run")
	}

	p.Status = model.RUNNING
	s.Current = h
	return nil
}

// Owned lists the resources owned by h.
func (s *State) Owned(h model.Handle) []int {
	var ids []int
	for i := range s.resources {
		if s.resources[i].Owner == h {
			ids = append(ids, i)
		}
	}
	return ids
}
