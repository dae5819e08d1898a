package netstats

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestStatsCollector(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	sc := New(2)
	sc.now = clock.now

	id := uuid.New()
	sc.RecordSend(id)
	assert.Equal(t, 1, sc.Pending())

	clock.advance(100 * time.Millisecond)
	sc.RecordRecv(id, 10)
	clock.advance(900 * time.Millisecond)
	sc.RecordRecv(id, 20)

	entry := sc.Finish(id)
	require.NotNil(t, entry)
	assert.Equal(t, 2, entry.Messages)
	assert.Equal(t, 30, entry.Bytes)
	assert.Equal(t, 100*time.Millisecond, entry.JoinLatency())
	assert.InDelta(t, 2.0, entry.Rate(), 1e-9)
	assert.Zero(t, sc.Pending())
	assert.Equal(t, 100*time.Millisecond, sc.AvgJoinLatency())
}

func TestStatsCollector_Unknown(t *testing.T) {
	sc := New(0)
	id := uuid.New()

	sc.RecordRecv(id, 1)
	assert.Nil(t, sc.Finish(id))
	assert.Zero(t, sc.AvgJoinLatency())
}

func TestStatsCollector_Window(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	sc := New(2)
	sc.now = clock.now

	for _, d := range []time.Duration{10, 20, 40} {
		id := uuid.New()
		sc.RecordSend(id)
		clock.advance(d * time.Millisecond)
		sc.RecordRecv(id, 1)
		sc.Finish(id)
	}
	// { 40, 20 }
	assert.Equal(t, 30*time.Millisecond, sc.AvgJoinLatency())
}

func TestStatEntry_Empty(t *testing.T) {
	e := StatEntry{}
	assert.Zero(t, e.JoinLatency())
	assert.Zero(t, e.Rate())
}
