package simulator_test

import (
	"context"
	"errors"
	"schedsim/src/model"
	"schedsim/src/scenario"
	"schedsim/src/server/bundle"
	"schedsim/src/server/kernel"
	"schedsim/src/server/simulator"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A low priority process holds resource 0 when a high priority one needs
// it, then a medium priority process arrives.
func inversion() *scenario.Scenario {
	return &scenario.Scenario{
		Name:        "inversion",
		MaxPriority: 10,
		Resources:   2,
		MaxTicks:    100,
		Processes: []scenario.Process{
			{Name: "low", Arrival: 0, Lifespan: 6, Priority: 1,
				Requests: []scenario.Request{{Resource: 0, At: 1, Duration: 4}}},
			{Name: "high", Arrival: 2, Lifespan: 3, Priority: 9,
				Requests: []scenario.Request{{Resource: 0, At: 0, Duration: 2}}},
			{Name: "medium", Arrival: 3, Lifespan: 4, Priority: 5},
		},
	}
}

func simple(lifespans ...int) *scenario.Scenario {
	sc := &scenario.Scenario{Name: "simple", MaxPriority: 10, Resources: 1, MaxTicks: 100}
	for _, l := range lifespans {
		sc.Processes = append(sc.Processes, scenario.Process{Lifespan: l})
	}
	return sc
}

func run(t *testing.T, sc *scenario.Scenario, alias string, opts ...simulator.Option) (*simulator.Simulator, []model.TickEvent, error) {
	b, err := bundle.Lookup(alias)
	require.NoError(t, err)

	var events []model.TickEvent
	record := simulator.ObserverFunc(func(_ *kernel.State, e *model.TickEvent) error {
		events = append(events, *e)
		return nil
	})

	sim, err := simulator.New(sc, b, append(opts, simulator.WithObserver(record))...)
	require.NoError(t, err)

	_, err = sim.Run(context.Background())
	return sim, events, err
}

func running(events []model.TickEvent) []model.Handle {
	out := make([]model.Handle, len(events))
	for i, e := range events {
		out[i] = e.Running
	}
	return out
}

func decisions(events []model.TickEvent) []model.Decision {
	out := make([]model.Decision, len(events))
	for i, e := range events {
		out[i] = e.Decision
	}
	return out
}

func TestFIFO(t *testing.T) {
	sim, events, err := run(t, simple(2, 1, 2), "fifo")
	require.NoError(t, err)

	assert.Equal(t, []model.Handle{0, 0, 1, 2, 2}, running(events))
	assert.Equal(t, []model.Decision{
		model.DECISION_SWITCH, model.DECISION_CONTINUE, model.DECISION_SWITCH,
		model.DECISION_SWITCH, model.DECISION_CONTINUE,
	}, decisions(events))

	// { 1, 2 } at the end of the first tick
	assert.Equal(t, []model.Handle{1, 2}, events[0].Ready)
	assert.Equal(t, []model.Handle{0}, events[1].Finished)

	summary := sim.Metrics().Summary()
	assert.Equal(t, 5, summary.Ticks)
	assert.Equal(t, 3, summary.Processes)
	assert.Equal(t, 3, summary.ContextSwitches)
	assert.Equal(t, 0, summary.Preemptions)
	assert.InDelta(t, 10.0/3, summary.AvgTurnaround, 1e-9)
	assert.InDelta(t, 5.0/3, summary.AvgWait, 1e-9)

	assert.True(t, sim.Done())
	assert.Equal(t, model.None, sim.State().Current)
	for h := 0; h < 3; h++ {
		assert.Equal(t, model.EXITED, sim.State().Process(model.Handle(h)).Status)
	}
}

func TestRR_Arrival(t *testing.T) {
	sc := simple(2, 1)
	sc.Processes[1].Arrival = 1

	_, events, err := run(t, sc, "rr")
	require.NoError(t, err)

	assert.Equal(t, []model.Handle{0, 1, 0}, running(events))
	assert.Equal(t, model.DECISION_PREEMPT, events[1].Decision)
	assert.Equal(t, model.Handle(0), events[1].Previous)
}

func TestPIP(t *testing.T) {
	sim, events, err := run(t, inversion(), "pip")
	require.NoError(t, err)

	// low inherits the priority of high, so medium waits
	assert.Equal(t, []model.Handle{0, 0, 0, 0, 0, 1, 1, 1, 2, 2, 2, 2, 0}, running(events))
	assert.Equal(t, []model.Handle{1}, events[2].Blocked)
	assert.Equal(t, model.DECISION_CONTINUE, events[2].Decision)
	assert.Equal(t, model.DECISION_PREEMPT, events[5].Decision)

	assert.Equal(t, 1, sim.State().Process(0).Priority)
	assert.Equal(t, 3, sim.Metrics().Summary().Inversions)
}

func TestPCP(t *testing.T) {
	sim, events, err := run(t, inversion(), "pcp")
	require.NoError(t, err)

	// low runs at the ceiling while it holds the resource
	assert.Equal(t, []model.Handle{0, 0, 0, 0, 0, 1, 1, 1, 2, 2, 2, 2, 0}, running(events))
	assert.Empty(t, events[2].Blocked)

	for h := 0; h < 3; h++ {
		p := sim.State().Process(model.Handle(h))
		assert.Equal(t, p.PriorityBase, p.Priority)
	}
}

func TestPriorityPreemptive(t *testing.T) {
	_, events, err := run(t, inversion(), "prio")
	require.NoError(t, err)

	// high takes the resource away from low
	assert.Equal(t, []model.Handle{0, 0, 1, 1, 1, 2, 2, 2, 2, 0, 0, 0, 0}, running(events))
	assert.Equal(t, []model.Handle{0}, events[2].Blocked)
	assert.Equal(t, []model.Handle{2, 0}, events[3].Ready)
}

func TestPrioFCFS(t *testing.T) {
	sim, events, err := run(t, inversion(), "prio-fcfs")
	require.NoError(t, err)

	// medium runs ahead of low while high waits on low
	assert.Equal(t, []model.Handle{0, 0, 0, 2, 2, 2, 2, 0, 0, 1, 1, 1, 0}, running(events))
	assert.Equal(t, []model.Handle{1}, events[2].Blocked)
	assert.Equal(t, []model.Handle{1}, events[6].Blocked)
	assert.Equal(t, 7, sim.Metrics().Summary().Inversions)
}

func TestDeadlock(t *testing.T) {
	sc := &scenario.Scenario{
		MaxPriority: 10, Resources: 2, MaxTicks: 100,
		Processes: []scenario.Process{
			{Lifespan: 4, Requests: []scenario.Request{{Resource: 0, At: 0, Duration: 4}, {Resource: 1, At: 1, Duration: 3}}},
			{Lifespan: 4, Requests: []scenario.Request{{Resource: 1, At: 0, Duration: 4}, {Resource: 0, At: 1, Duration: 3}}},
		},
	}

	sim, events, err := run(t, sc, "rr")
	assert.ErrorIs(t, err, simulator.ErrDeadlock)
	assert.Len(t, events, 2)
	assert.Equal(t, model.BLOCKED, sim.State().Process(0).Status)
	assert.Equal(t, model.BLOCKED, sim.State().Process(1).Status)
}

func TestTickLimit(t *testing.T) {
	sc := simple(5)
	sc.MaxTicks = 3

	_, events, err := run(t, sc, "fifo")
	assert.ErrorIs(t, err, simulator.ErrTickLimit)
	assert.Len(t, events, 3)
}

func TestIdleUntilArrival(t *testing.T) {
	sc := simple(1)
	sc.Processes[0].Arrival = 2

	_, events, err := run(t, sc, "sjf")
	require.NoError(t, err)

	assert.Equal(t, []model.Handle{model.None, model.None, 0}, running(events))
	assert.Equal(t, model.DECISION_IDLE, events[0].Decision)
}

func TestObserverError(t *testing.T) {
	boom := errors.New("boom")
	fail := simulator.ObserverFunc(func(_ *kernel.State, e *model.TickEvent) error {
		if e.Tick == 1 {
			return boom
		}
		return nil
	})

	_, events, err := run(t, simple(3), "fifo", simulator.WithObserver(fail))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, events, 1)
}

func TestCancel(t *testing.T) {
	b, err := bundle.Lookup("fifo")
	require.NoError(t, err)
	sim, err := simulator.New(simple(3), b)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = sim.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvalidScenario(t *testing.T) {
	b, err := bundle.Lookup("fifo")
	require.NoError(t, err)

	_, err = simulator.New(&scenario.Scenario{MaxTicks: 1}, b)
	assert.ErrorIs(t, err, scenario.ErrInvalid)
}

func TestDeterminism(t *testing.T) {
	id := uuid.New()
	for _, alias := range []string{"fifo", "sjf", "stcf", "rr", "prio", "pa", "pcp", "pip", "prio-fcfs"} {
		first, a, err := run(t, inversion(), alias, simulator.WithRunID(id))
		require.NoError(t, err, alias)
		second, b, err := run(t, inversion(), alias, simulator.WithRunID(id))
		require.NoError(t, err, alias)

		assert.Equal(t, a, b, alias)
		assert.Equal(t, first.Metrics().Summary(), second.Metrics().Summary(), alias)
		assert.Equal(t, id, first.ID())
	}
}

func TestDescribe(t *testing.T) {
	sim, _, err := run(t, inversion(), "fifo")
	require.NoError(t, err)

	assert.Equal(t, "1 (high)", sim.Describe(1))
	assert.Equal(t, "7", sim.Describe(7))
}
