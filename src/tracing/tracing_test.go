package tracing_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"schedsim/src/tracing"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilSpan(t *testing.T) {
	var span *tracing.Span
	assert.Nil(t, span.WithAttributes(map[string]string{"k": "v"}).WithInt("tick", 1))
	tracing.EndSpan(span, errors.New("ignored"))
}

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "spans.json")
	require.NoError(t, tracing.Init("schedsim", "test", fname))
	assert.True(t, tracing.Enabled())

	ctx, run := tracing.StartSpan(context.Background(), "run")
	_, tick := tracing.StartSpan(ctx, "tick")
	tick.WithInt("tick", 0).WithAttributes(map[string]string{"decision": "switch"})
	tracing.EndSpan(tick, nil)
	tracing.EndSpan(run, errors.New("aborted"))

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tick"`)
	assert.Contains(t, string(data), "aborted")
}
