package metrics

import (
	"schedsim/src/model"
	"schedsim/src/server/kernel"

	"github.com/google/uuid"
)

// Per-process counters, in ticks.
type ProcessStats struct {
	PID      model.Handle
	Lifespan int
	Priority int // base priority
	Arrival  int
	FirstRun int // -1 until the process runs
	Finish   int // tick of the last unit of work, -1 while live
	Run      int
	Wait     int // in the ready queue
	Blocked  int // in a wait queue
}

func (p *ProcessStats) Finished() bool {
	return p.Finish >= 0
}

// Ticks from arrival to completion, both inclusive.
func (p *ProcessStats) Turnaround() int {
	if !p.Finished() {
		return 0
	}
	return p.Finish - p.Arrival + 1
}

// Ticks from arrival to the first run.
func (p *ProcessStats) Response() int {
	if p.FirstRun < 0 {
		return 0
	}
	return p.FirstRun - p.Arrival
}

type globalCounters struct {
	Ticks           int
	ContextSwitches int
	Preemptions     int
	IdleTicks       int
	// Ticks where a process with a larger base priority than the running
	// one was ready or blocked.
	Inversions int
}

// Collector accumulates the statistics of one simulation run from its tick
// events. It is a simulator observer.
//
// This type is not thread-safe.
type Collector struct {
	runID  uuid.UUID
	bundle string

	procs []*ProcessStats
	gl    globalCounters
	wc    workConserving

	timeline []model.TickEvent
}

func NewCollector(runID uuid.UUID, bundle string) *Collector {
	return &Collector{
		runID:  runID,
		bundle: bundle,
	}
}

func (c *Collector) OnTick(s *kernel.State, e *model.TickEvent) error {
	c.admit(s, e.Tick)

	c.gl.Ticks++
	switch e.Decision {
	case model.DECISION_IDLE:
		c.gl.IdleTicks++
	case model.DECISION_SWITCH:
		c.gl.ContextSwitches++
	case model.DECISION_PREEMPT:
		c.gl.ContextSwitches++
		c.gl.Preemptions++
	}
	c.wc.sample(e.Running != model.None, len(e.Ready))

	if e.Running != model.None {
		st := c.procs[e.Running]
		st.Run++
		if st.FirstRun < 0 {
			st.FirstRun = e.Tick
		}
		if s.Process(e.Running).Finished() {
			st.Finish = e.Tick
		}
	}
	for _, h := range e.Ready {
		c.procs[h].Wait++
	}
	for _, h := range e.Blocked {
		c.procs[h].Blocked++
	}

	if c.inverted(e) {
		c.gl.Inversions++
	}

	c.timeline = append(c.timeline, cloneEvent(e))
	return nil
}

// Start tracking processes spawned since the previous tick.
func (c *Collector) admit(s *kernel.State, tick int) {
	for h := len(c.procs); h < s.Processes(); h++ {
		p := s.Process(model.Handle(h))
		c.procs = append(c.procs, &ProcessStats{
			PID:      p.PID,
			Lifespan: p.Lifespan,
			Priority: p.PriorityBase,
			Arrival:  tick,
			FirstRun: -1,
			Finish:   -1,
		})
	}
}

func (c *Collector) inverted(e *model.TickEvent) bool {
	if e.Running == model.None {
		return false
	}
	running := c.procs[e.Running].Priority
	for _, waiting := range [][]model.Handle{e.Ready, e.Blocked} {
		for _, h := range waiting {
			if c.procs[h].Priority > running {
				return true
			}
		}
	}
	return false
}

// The events are kept for the timeline; their slices must not be shared with
// the caller.
func cloneEvent(e *model.TickEvent) model.TickEvent {
	out := *e
	out.Ready = append([]model.Handle(nil), e.Ready...)
	out.Blocked = append([]model.Handle(nil), e.Blocked...)
	out.Finished = append([]model.Handle(nil), e.Finished...)
	return out
}

func (c *Collector) Processes() []*ProcessStats {
	return c.procs
}

func (c *Collector) Timeline() []model.TickEvent {
	return c.timeline
}

// Fraction of ticks with a non-empty ready queue during which the CPU was
// busy. 1 when the ready queue was never backlogged.
func (c *Collector) WorkConserving() float64 {
	return c.wc.ratio()
}

// Summary of the run so far. Averages cover finished processes only.
func (c *Collector) Summary() *model.Summary {
	sum := &model.Summary{
		RunID:           c.runID,
		Bundle:          c.bundle,
		Ticks:           c.gl.Ticks,
		Processes:       len(c.procs),
		ContextSwitches: c.gl.ContextSwitches,
		Preemptions:     c.gl.Preemptions,
		IdleTicks:       c.gl.IdleTicks,
		Inversions:      c.gl.Inversions,
	}

	var turnaround, wait int
	var slowdown []float64
	for _, p := range c.procs {
		if !p.Finished() {
			continue
		}
		turnaround += p.Turnaround()
		wait += p.Wait
		slowdown = append(slowdown, float64(p.Turnaround())/float64(p.Lifespan))
	}

	if n := len(slowdown); n > 0 {
		sum.AvgTurnaround = float64(turnaround) / float64(n)
		sum.AvgWait = float64(wait) / float64(n)
	}
	sum.Jain = Jain(slowdown)
	return sum
}
