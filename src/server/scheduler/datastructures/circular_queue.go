package datastructures

// A bounded circular double-ended queue.
//
// Iteration order is insertion order: index 0 is the head.
type CircularQueue[T comparable] struct {
	buffer []T
	head   int
	len    int
}

// Create a new circular queue.
func NewCircularQueue[T comparable](capacity int) CircularQueue[T] {
	return CircularQueue[T]{
		buffer: make([]T, capacity),
	}
}

// Append at the tail. Returns false if the queue is full.
func (q *CircularQueue[T]) Enqueue(item T) bool {
	if q.len == len(q.buffer) {
		return false
	}

	tail := (q.head + q.len) % len(q.buffer)
	q.buffer[tail] = item

	q.len++

	return true
}

// Insert at the head. Returns false if the queue is full.
func (q *CircularQueue[T]) EnqueueFront(item T) bool {
	if q.len == len(q.buffer) {
		return false
	}

	q.head = (q.head - 1 + len(q.buffer)) % len(q.buffer)
	q.buffer[q.head] = item

	q.len++

	return true
}

// Remove and return the head.
func (q *CircularQueue[T]) Dequeue() (val T, ok bool) {
	if q.len == 0 {
		ok = false
		return
	}

	val = q.buffer[q.head]
	ok = true

	var zero T
	q.buffer[q.head] = zero
	q.head = (q.head + 1) % len(q.buffer)
	q.len--

	return
}

// Return the head without removing it.
func (q *CircularQueue[T]) Peek() (val T, ok bool) {
	if q.len == 0 {
		ok = false
		return
	}
	return q.buffer[q.head], true
}

// The i-th element from the head. Panics when out of range.
func (q *CircularQueue[T]) At(i int) T {
	if i < 0 || i >= q.len {
		panic("circular queue index out of range")
	}
	return q.buffer[(q.head+i)%len(q.buffer)]
}

// Position of item from the head, or -1.
func (q *CircularQueue[T]) Index(item T) int {
	for i := 0; i < q.len; i++ {
		if q.At(i) == item {
			return i
		}
	}
	return -1
}

// Remove the first occurrence of item, keeping the order of the others.
// Returns false if item is not enqueued.
func (q *CircularQueue[T]) Remove(item T) bool {
	i := q.Index(item)
	if i < 0 {
		return false
	}

	for ; i < q.len-1; i++ {
		q.buffer[(q.head+i)%len(q.buffer)] = q.buffer[(q.head+i+1)%len(q.buffer)]
	}

	var zero T
	q.buffer[(q.head+q.len-1)%len(q.buffer)] = zero
	q.len--

	return true
}

// Snapshot of the elements in order, head first.
func (q *CircularQueue[T]) Items() []T {
	items := make([]T, q.len)
	for i := range items {
		items[i] = q.At(i)
	}
	return items
}

func (q *CircularQueue[T]) Len() int {
	return q.len
}

func (q *CircularQueue[T]) IsEmpty() bool {
	return q.len == 0
}
