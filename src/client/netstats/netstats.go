// Package netstats measures watch sessions from the client side: how long
// the first tick takes to arrive and how fast messages stream afterwards. It
// knows nothing about QUIC, only about send and receive events keyed by run
// ID.
package netstats

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// StatEntry holds the timestamps of one run.
type StatEntry struct {
	SentAt   time.Time
	FirstAt  time.Time
	LastAt   time.Time
	Messages int
	Bytes    int
}

// Delay until the first message, or 0.
func (e *StatEntry) JoinLatency() time.Duration {
	if e.Messages == 0 {
		return 0
	}
	return e.FirstAt.Sub(e.SentAt)
}

// Messages per second between the request and the last message.
func (e *StatEntry) Rate() float64 {
	d := e.LastAt.Sub(e.SentAt)
	if e.Messages == 0 || d <= 0 {
		return 0
	}
	return float64(e.Messages) / d.Seconds()
}

// StatsCollector keeps the open runs and a circular window of the most
// recent join latencies.
type StatsCollector struct {
	mu      sync.Mutex
	pending map[uuid.UUID]*StatEntry
	window  []time.Duration
	idx     int // insertion pointer, grows forever

	now func() time.Time
}

// New creates a collector averaging over window (>= 1) runs.
func New(window int) *StatsCollector {
	if window < 1 {
		window = 1
	}
	return &StatsCollector{
		pending: make(map[uuid.UUID]*StatEntry),
		window:  make([]time.Duration, window),
		now:     time.Now,
	}
}

// RecordSend is called as soon as the request for id is written.
func (sc *StatsCollector) RecordSend(id uuid.UUID) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.pending[id] = &StatEntry{SentAt: sc.now()}
}

// RecordRecv is called for every message of run id.
func (sc *StatsCollector) RecordRecv(id uuid.UUID, bytes int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	entry, ok := sc.pending[id]
	if !ok {
		return
	}

	now := sc.now()
	if entry.Messages == 0 {
		entry.FirstAt = now
	}
	entry.LastAt = now
	entry.Messages++
	entry.Bytes += bytes
}

// Finish closes run id and returns its entry, or nil for an unknown id.
func (sc *StatsCollector) Finish(id uuid.UUID) *StatEntry {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	entry, ok := sc.pending[id]
	if !ok {
		return nil
	}
	delete(sc.pending, id)

	sc.window[sc.idx%len(sc.window)] = entry.JoinLatency()
	sc.idx++
	return entry
}

// Average join latency over the filled part of the window.
func (sc *StatsCollector) AvgJoinLatency() time.Duration {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	n := min(sc.idx, len(sc.window))
	if n == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range sc.window[:n] {
		sum += v
	}
	return sum / time.Duration(n)
}

// Pending returns how many runs are still open.
func (sc *StatsCollector) Pending() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.pending)
}
