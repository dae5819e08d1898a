package model

// Handle addresses a process slot in the kernel registry. The handle doubles
// as the process identifier.
type Handle int

// None is the handle of "no process": an idle CPU, a free resource.
const None Handle = -1

// QueueID names the queue a process is linked into. Non-negative values are
// resource identifiers (the resource wait queue).
type QueueID int

const (
	NoQueue    QueueID = -2
	ReadyQueue QueueID = -1
)

// ALPN protocol of the trace server.
const ALPN = "schedsim"

// Defaults of the simulated machine.
const (
	MAX_PRIORITY     int = 100
	NR_RESOURCES     int = 32
	MAX_PROCESSES    int = 64
	DEFAULT_MAX_TICK int = 10000
)

type Status int

const (
	READY Status = iota
	RUNNING
	BLOCKED
	// Terminal: the process consumed its whole lifespan.
	EXITED
)

func (s Status) String() string {
	switch s {
	case READY:
		return "ready"
	case RUNNING:
		return "running"
	case BLOCKED:
		return "blocked"
	case EXITED:
		return "exited"
	default:
		return "unknown"
	}
}

func (q QueueID) String() string {
	switch {
	case q == NoQueue:
		return "none"
	case q == ReadyQueue:
		return "readyqueue"
	default:
		return "waitqueue"
	}
}
