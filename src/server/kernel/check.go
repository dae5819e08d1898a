package kernel

import (
	"fmt"
	"io"
	"schedsim/src/model"
)

// Check verifies the registry invariants:
//   - at most one RUNNING process, the current one, linked into no queue;
//   - 0 <= age <= lifespan, finished processes are in no queue;
//   - queue membership agrees with the queues and with the status;
//   - a resource owner is never in the wait queue of that resource;
//   - every live process other than current is linked somewhere.
func (s *State) Check() error {
	running := 0
	for i := range s.processes {
		p := &s.processes[i]

		if p.Age < 0 || p.Age > p.Lifespan {
			return Violation("check", p.PID, -1, "age %d outside [0, %d]", p.Age, p.Lifespan)
		}

		if p.Status == model.RUNNING {
			running++
			if p.PID != s.Current {
				return Violation("check", p.PID, -1, "running but not current")
			}
		}

		switch {
		case p.Queue == model.NoQueue:
			if !p.Finished() && p.PID != s.Current {
				return Violation("check", p.PID, -1, "live process lost: not current and in no queue")
			}
		case p.Finished():
			return Violation("check", p.PID, -1, "finished process linked into %s", p.Queue)
		case p.PID == s.Current && p.Status == model.RUNNING:
			return Violation("check", p.PID, -1, "running process linked into %s", p.Queue)
		case p.Queue == model.ReadyQueue:
			if p.Status != model.READY {
				return Violation("check", p.PID, -1, "%s process in the ready queue", p.Status)
			}
			if s.ready.Index(p.PID) < 0 {
				return Violation("check", p.PID, -1, "marked ready-queued but missing")
			}
		default:
			if p.Status != model.BLOCKED {
				return Violation("check", p.PID, int(p.Queue), "%s process in a wait queue", p.Status)
			}
			wq := s.WaitQueue(int(p.Queue))
			if wq == nil || wq.Index(p.PID) < 0 {
				return Violation("check", p.PID, int(p.Queue), "marked waiting but missing")
			}
		}
	}

	if running > 1 {
		return Violation("check", model.None, -1, "%d running processes", running)
	}

	if s.ready.Len()+s.waiting() > len(s.processes) {
		return Violation("check", model.None, -1, "queues hold more entries than processes")
	}

	for i := range s.resources {
		r := &s.resources[i]
		if r.Owned() && r.waitqueue.Index(r.Owner) >= 0 {
			return Violation("check", r.Owner, i, "owner waits for its own resource")
		}
	}

	return nil
}

func (s *State) waiting() int {
	n := 0
	for i := range s.resources {
		n += s.resources[i].waitqueue.Len()
	}
	return n
}

// Dump writes the current, ready queue and resource table.
func (s *State) Dump(w io.Writer) {
	fmt.Fprintf(w, "***** CURRENT (tick %d) *****\n", s.Ticks)
	if p := s.CurrentProcess(); p != nil {
		fmt.Fprintf(w, " %s\n", p)
	} else {
		fmt.Fprintln(w, " (idle)")
	}

	fmt.Fprintln(w, "***** READY QUEUE *****")
	for _, h := range s.ready.Items() {
		fmt.Fprintf(w, " %s\n", s.Process(h))
	}

	fmt.Fprintln(w, "***** RESOURCES *****")
	for i := range s.resources {
		r := &s.resources[i]
		if !r.Owned() && r.waitqueue.IsEmpty() {
			continue
		}
		fmt.Fprintf(w, " %2d: owner %d, waiting %s\n",
			i, r.Owner, model.FormatArray(r.waitqueue.Items()))
	}
}
