// Package simulator drives a scenario tick by tick through a policy bundle:
// it admits arriving processes, schedules, plays their resource requests and
// ages the running process.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"schedsim/src/log"
	"schedsim/src/model"
	"schedsim/src/scenario"
	"schedsim/src/server/bundle"
	"schedsim/src/server/kernel"
	"schedsim/src/server/metrics"
	"schedsim/src/server/scheduler/datastructures"
	"schedsim/src/tracing"
	"strconv"

	"github.com/google/uuid"
)

var (
	ErrTickLimit = errors.New("tick limit reached")
	ErrDeadlock  = errors.New("deadlock: every live process is blocked")
)

// Observer is notified once per simulated tick, after the invariants were
// checked. An error aborts the run.
type Observer interface {
	OnTick(s *kernel.State, e *model.TickEvent) error
}

type ObserverFunc func(s *kernel.State, e *model.TickEvent) error

func (f ObserverFunc) OnTick(s *kernel.State, e *model.TickEvent) error {
	return f(s, e)
}

// Simulator runs one scenario once. It is not thread-safe; run independent
// simulations on separate instances.
type Simulator struct {
	id        uuid.UUID
	scenario  *scenario.Scenario
	bundle    *bundle.Bundle
	state     *kernel.State
	metrics   *metrics.Collector
	observers []Observer
	logger    *slog.Logger

	// Scenario indexes keyed by negated arrival tick: earliest first,
	// declaration order on ties.
	arrivals datastructures.PriorityQueue[int, int]
	// Scenario entry of every spawned process, by handle.
	spawned []*scenario.Process
}

func New(sc *scenario.Scenario, b *bundle.Bundle, opts ...Option) (*Simulator, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	sim := &Simulator{
		id:       uuid.New(),
		scenario: sc,
		bundle:   b,
		state:    kernel.NewState(len(sc.Processes), sc.Resources, sc.MaxPriority),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		arrivals: datastructures.NewPriorityQueue[int, int](len(sc.Processes)),
	}
	for _, opt := range opts {
		opt(sim)
	}

	sim.metrics = metrics.NewCollector(sim.id, b.Name)
	sim.observers = append([]Observer{sim.metrics}, sim.observers...)

	for i, p := range sc.Processes {
		sim.arrivals.Enqueue(i, -p.Arrival)
	}
	return sim, nil
}

func (sim *Simulator) ID() uuid.UUID {
	return sim.id
}

func (sim *Simulator) State() *kernel.State {
	return sim.state
}

func (sim *Simulator) Metrics() *metrics.Collector {
	return sim.metrics
}

// Scenario entry of a spawned process, or nil.
func (sim *Simulator) Entry(h model.Handle) *scenario.Process {
	if h < 0 || int(h) >= len(sim.spawned) {
		return nil
	}
	return sim.spawned[h]
}

// Run simulates until every process finished. The summary is returned even
// when the run fails, covering the ticks simulated so far.
func (sim *Simulator) Run(ctx context.Context) (*model.Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "simulation")
	span.WithAttributes(map[string]string{
		"run":      sim.id.String(),
		"bundle":   sim.bundle.Name,
		"scenario": sim.scenario.Name,
	})

	logger := sim.logger.With("run", sim.id.String(), "bundle", sim.bundle.Name)
	logger.Info("simulation started", "scenario", sim.scenario.Name, "processes", len(sim.scenario.Processes))

	err := sim.run(ctx)
	tracing.EndSpan(span, err)

	summary := sim.metrics.Summary()
	if err != nil {
		logger.Error("simulation aborted", "tick", sim.state.Ticks, log.ErrAttr(err))
		return summary, err
	}

	logger.Info("simulation finished",
		"ticks", summary.Ticks,
		"switches", summary.ContextSwitches,
		"preemptions", summary.Preemptions,
		"avg_turnaround", summary.AvgTurnaround,
	)
	return summary, nil
}

func (sim *Simulator) run(ctx context.Context) error {
	for !sim.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sim.state.Ticks >= sim.scenario.MaxTicks {
			return fmt.Errorf("%w after %d ticks", ErrTickLimit, sim.state.Ticks)
		}
		if err := sim.Step(ctx); err != nil {
			return err
		}
	}

	// Retire the last process.
	return sim.state.Dispatch(model.None)
}

// Done reports whether every process arrived and finished.
func (sim *Simulator) Done() bool {
	if sim.arrivals.Len() > 0 {
		return false
	}
	for h := 0; h < sim.state.Processes(); h++ {
		if !sim.state.Process(model.Handle(h)).Finished() {
			return false
		}
	}
	return true
}

// Step simulates one tick.
func (sim *Simulator) Step(ctx context.Context) error {
	_, span := tracing.StartSpan(ctx, "tick")
	span.WithInt("tick", sim.state.Ticks)

	event, err := sim.step()
	if event != nil {
		span.WithInt("pid", int(event.Running)).
			WithAttributes(map[string]string{"decision": string(event.Decision)})
	}
	tracing.EndSpan(span, err)
	return err
}

func (sim *Simulator) step() (*model.TickEvent, error) {
	s := sim.state

	if err := sim.admit(); err != nil {
		return nil, err
	}

	prev := s.Current
	running, err := sim.schedule()
	if err != nil {
		return nil, err
	}
	event := sim.newEvent(prev, running)

	if running == model.None {
		if sim.arrivals.Len() == 0 {
			return event, fmt.Errorf("%w at tick %d", ErrDeadlock, s.Ticks)
		}
	} else {
		p := s.Process(running)
		p.Age++
		if err := sim.releaseDue(p); err != nil {
			return event, err
		}
	}
	sim.snapshot(event)

	if err := s.Check(); err != nil {
		return event, err
	}
	s.Ticks++

	sim.logger.Debug("tick",
		"tick", event.Tick,
		"running", int(event.Running),
		"decision", string(event.Decision),
		"ready", model.FormatArray(event.Ready),
	)

	for _, o := range sim.observers {
		if err := o.OnTick(s, event); err != nil {
			return event, err
		}
	}
	return event, nil
}

// Spawn every process whose arrival tick has come.
func (sim *Simulator) admit() error {
	for sim.arrivals.Len() > 0 {
		i, arrival, _ := sim.arrivals.Peek()
		if -arrival > sim.state.Ticks {
			return nil
		}
		sim.arrivals.Dequeue()

		p := &sim.scenario.Processes[i]
		h, err := sim.state.Spawn(p.Lifespan, p.Priority)
		if err != nil {
			return fmt.Errorf("failed to admit process %d: %w", i, err)
		}
		sim.spawned = append(sim.spawned, p)
		sim.logger.Debug("process admitted", "tick", sim.state.Ticks, "pid", int(h), "name", p.Name)
	}
	return nil
}

// Schedule until the chosen process holds every resource it needs at its
// age. Each denial blocks one more process, so the loop is bounded.
func (sim *Simulator) schedule() (model.Handle, error) {
	s := sim.state
	for attempt := 0; attempt <= s.Processes(); attempt++ {
		running, err := sim.bundle.Schedule(s)
		if err != nil || running == model.None {
			return running, err
		}

		granted, err := sim.acquireDue(running)
		if err != nil {
			return model.None, err
		}
		if granted {
			return running, nil
		}
	}
	return model.None, kernel.Violation("schedule", model.None, -1, "no process kept the CPU after %d attempts", s.Processes()+1)
}

// Acquire the requests active at the age of h that h does not own. false
// means h got blocked.
func (sim *Simulator) acquireDue(h model.Handle) (bool, error) {
	s := sim.state
	p := s.Process(h)

	for _, req := range sim.spawned[h].Requests {
		if p.Age < req.At || p.Age >= req.End() {
			continue
		}
		r, err := s.Resource(req.Resource)
		if err != nil {
			return false, err
		}
		if r.Owner == h {
			continue
		}

		granted, err := sim.bundle.Acquire(s, req.Resource)
		if err != nil {
			return false, err
		}
		if !granted {
			sim.logger.Debug("process blocked", "tick", s.Ticks, "pid", int(h), "resource", req.Resource, "owner", int(r.Owner))
			return false, nil
		}
	}
	return true, nil
}

// Release the requests of p ending at its age. A resource taken away by a
// preemptive protocol is not released again.
func (sim *Simulator) releaseDue(p *model.Process) error {
	s := sim.state
	for _, req := range sim.spawned[p.PID].Requests {
		if req.End() != p.Age {
			continue
		}
		r, err := s.Resource(req.Resource)
		if err != nil {
			return err
		}
		if r.Owner != p.PID {
			continue
		}
		if err := sim.bundle.Release(s, req.Resource); err != nil {
			return err
		}
	}
	return nil
}

func (sim *Simulator) newEvent(prev, running model.Handle) *model.TickEvent {
	e := &model.TickEvent{
		RunID:    sim.id,
		Tick:     sim.state.Ticks,
		Running:  running,
		Previous: prev,
	}

	switch {
	case running == model.None:
		e.Decision = model.DECISION_IDLE
	case running == prev:
		e.Decision = model.DECISION_CONTINUE
	case prev != model.None && sim.state.Process(prev).Status == model.READY:
		e.Decision = model.DECISION_PREEMPT
	default:
		e.Decision = model.DECISION_SWITCH
	}
	return e
}

// Fill in the queues as they stand at the end of the tick.
func (sim *Simulator) snapshot(e *model.TickEvent) {
	s := sim.state
	e.Ready = s.ReadyQueue().Items()
	e.Blocked = e.Blocked[:0]
	e.Finished = e.Finished[:0]
	for h := 0; h < s.Processes(); h++ {
		p := s.Process(model.Handle(h))
		switch {
		case p.Finished():
			e.Finished = append(e.Finished, p.PID)
		case p.Status == model.BLOCKED:
			e.Blocked = append(e.Blocked, p.PID)
		}
	}
}

// Describe a process for logs and dumps.
func (sim *Simulator) Describe(h model.Handle) string {
	entry := sim.Entry(h)
	if entry == nil || entry.Name == "" {
		return strconv.Itoa(int(h))
	}
	return fmt.Sprintf("%d (%s)", h, entry.Name)
}
