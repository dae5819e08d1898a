package stream_handler

import (
	"schedsim/src/server/scheduler/datastructures"
	"sync"
)

type task struct {
	run func()
}

// TaskScheduler runs queued tasks on a fixed set of workers in
// first-come-first-served order. The queue is bounded.
type TaskScheduler struct {
	tasks datastructures.CircularQueue[*task]

	mutex     *sync.Mutex
	cond      *sync.Cond
	isStopped bool
	workers   sync.WaitGroup
}

func NewTaskScheduler(capacity int) *TaskScheduler {
	mutex := &sync.Mutex{}
	cond := sync.NewCond(mutex)

	return &TaskScheduler{
		tasks: datastructures.NewCircularQueue[*task](capacity),

		mutex:     mutex,
		cond:      cond,
		isStopped: false,
	}
}

// Start launches the workers. Call it once.
func (ts *TaskScheduler) Start(workers int) {
	for i := 0; i < workers; i++ {
		ts.workers.Add(1)
		go ts.run()
	}
}

// Stop waits for the running tasks to return. Tasks still queued are
// dropped.
func (ts *TaskScheduler) Stop() {
	ts.mutex.Lock()

	ts.isStopped = true

	ts.mutex.Unlock()
	ts.cond.Broadcast()

	ts.workers.Wait()
}

// Enqueue returns false when the queue is full or stopped.
func (ts *TaskScheduler) Enqueue(run func()) bool {
	ts.mutex.Lock()

	ok := !ts.isStopped && ts.tasks.Enqueue(&task{run: run})

	ts.mutex.Unlock()
	ts.cond.Signal()

	return ok
}

// Number of tasks waiting for a worker.
func (ts *TaskScheduler) Pending() int {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	return ts.tasks.Len()
}

func (ts *TaskScheduler) run() {
	defer ts.workers.Done()

	ts.mutex.Lock()

	for !ts.isStopped {
		t, ok := ts.tasks.Dequeue()
		if !ok {
			ts.cond.Wait()
			continue
		}

		// Execute task outside mutex
		ts.mutex.Unlock()
		t.run()
		ts.mutex.Lock()
	}

	ts.mutex.Unlock()
}
