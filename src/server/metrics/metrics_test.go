package metrics_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"schedsim/src/model"
	"schedsim/src/server/kernel"
	"schedsim/src/server/metrics"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJain(t *testing.T) {
	assert.Equal(t, 0.0, metrics.Jain(nil))
	assert.InDelta(t, 1.0, metrics.Jain([]float64{2, 2, 2}), 1e-9)
	assert.InDelta(t, 1.0/3, metrics.Jain([]float64{5, 0, 0}), 1e-9)
}

// Two processes: 0 (lifespan 2, priority 1) runs first, 1 (lifespan 1,
// priority 5) arrives on the second tick and waits.
func collect(t *testing.T) (*metrics.Collector, uuid.UUID) {
	id := uuid.New()
	c := metrics.NewCollector(id, "FIFO")
	s := kernel.NewState(2, 1, 10)

	_, err := s.Spawn(2, 1)
	require.NoError(t, err)
	require.NoError(t, s.Unlink(0))
	require.NoError(t, s.Dispatch(0))
	s.Process(0).Age++
	require.NoError(t, c.OnTick(s, &model.TickEvent{
		RunID: id, Tick: 0, Running: 0, Previous: model.None, Decision: model.DECISION_SWITCH,
	}))

	_, err = s.Spawn(1, 5)
	require.NoError(t, err)
	s.Process(0).Age++
	require.NoError(t, c.OnTick(s, &model.TickEvent{
		RunID: id, Tick: 1, Running: 0, Previous: 0, Decision: model.DECISION_CONTINUE,
		Ready: []model.Handle{1}, Finished: []model.Handle{0},
	}))

	require.NoError(t, s.Unlink(1))
	require.NoError(t, s.Dispatch(1))
	s.Process(1).Age++
	require.NoError(t, c.OnTick(s, &model.TickEvent{
		RunID: id, Tick: 2, Running: 1, Previous: 0, Decision: model.DECISION_SWITCH,
		Finished: []model.Handle{0, 1},
	}))

	require.NoError(t, s.Dispatch(model.None))
	require.NoError(t, c.OnTick(s, &model.TickEvent{
		RunID: id, Tick: 3, Running: model.None, Previous: 1, Decision: model.DECISION_IDLE,
		Finished: []model.Handle{0, 1},
	}))
	return c, id
}

func TestCollector(t *testing.T) {
	c, id := collect(t)

	procs := c.Processes()
	require.Len(t, procs, 2)

	assert.Equal(t, 0, procs[0].Arrival)
	assert.Equal(t, 0, procs[0].FirstRun)
	assert.Equal(t, 1, procs[0].Finish)
	assert.Equal(t, 2, procs[0].Run)
	assert.Equal(t, 2, procs[0].Turnaround())

	assert.Equal(t, 1, procs[1].Arrival)
	assert.Equal(t, 2, procs[1].FirstRun)
	assert.Equal(t, 1, procs[1].Wait)
	assert.Equal(t, 1, procs[1].Response())
	assert.Equal(t, 2, procs[1].Turnaround())

	summary := c.Summary()
	assert.Equal(t, id, summary.RunID)
	assert.Equal(t, "FIFO", summary.Bundle)
	assert.Equal(t, 4, summary.Ticks)
	assert.Equal(t, 2, summary.ContextSwitches)
	assert.Equal(t, 1, summary.IdleTicks)
	// 1 waited with a larger priority while 0 ran
	assert.Equal(t, 1, summary.Inversions)
	assert.InDelta(t, 2.0, summary.AvgTurnaround, 1e-9)
	assert.InDelta(t, 0.5, summary.AvgWait, 1e-9)
	// slowdowns 1 and 2
	assert.InDelta(t, 0.9, summary.Jain, 1e-9)

	assert.Equal(t, 1.0, c.WorkConserving())
	assert.Len(t, c.Timeline(), 4)
}

func TestProcessStats_Live(t *testing.T) {
	p := metrics.ProcessStats{Arrival: 3, FirstRun: -1, Finish: -1}
	assert.False(t, p.Finished())
	assert.Zero(t, p.Turnaround())
	assert.Zero(t, p.Response())
}

func TestWriteCSV(t *testing.T) {
	c, id := collect(t)
	dir := filepath.Join(t.TempDir(), "out")

	require.NoError(t, c.WriteCSV(dir))

	timeline := readCSV(t, filepath.Join(dir, metrics.TimelineFile))
	require.Len(t, timeline, 5)
	assert.Equal(t, []string{"tick", "running", "previous", "decision", "ready", "blocked", "finished"}, timeline[0])
	assert.Equal(t, []string{"1", "0", "0", "continue", "[1]", "[]", "[0]"}, timeline[2])
	assert.Equal(t, "-1", timeline[4][1])

	procs := readCSV(t, filepath.Join(dir, metrics.ProcessesFile))
	require.Len(t, procs, 3)
	assert.Equal(t, []string{"1", "1", "5", "1", "2", "2", "1", "1", "0", "2", "1"}, procs[2])

	summary := readCSV(t, filepath.Join(dir, metrics.SummaryFile))
	require.Len(t, summary, 2)
	assert.Equal(t, id.String(), summary[1][0])
	assert.Equal(t, "0.900000", summary[1][10])
	assert.Equal(t, "1.000000", summary[1][11])
}

func readCSV(t *testing.T, path string) [][]string {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
