package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"schedsim/src/server/bundle"
	"schedsim/src/server/metrics"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCLI(metricsDir string) (*cli, *bytes.Buffer) {
	var out bytes.Buffer
	return &cli{
		out:        &out,
		metricsDir: metricsDir,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, &out
}

func TestBundles(t *testing.T) {
	c, out := newCLI("")
	c.bundles()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, len(bundle.All()))
	assert.Contains(t, lines[7], "Priority + PIP Protocol")
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	c, out := newCLI(dir)

	require.NoError(t, c.run(context.Background(), []string{"scenarios/inversion.yaml", "pip"}))

	assert.Contains(t, out.String(), "Priority + PIP Protocol: 13 ticks, 3 processes")
	assert.Contains(t, out.String(), "1 (high)")

	runs, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	_, err = os.Stat(filepath.Join(dir, runs[0].Name(), metrics.TimelineFile))
	assert.NoError(t, err)
}

func TestRun_Errors(t *testing.T) {
	c, _ := newCLI("")

	assert.Error(t, c.run(context.Background(), []string{"scenarios/inversion.yaml"}))
	assert.ErrorIs(t, c.run(context.Background(), []string{"scenarios/inversion.yaml", "lottery"}), bundle.ErrUnknownBundle)
	assert.Error(t, c.run(context.Background(), []string{"scenarios/missing.yaml", "fifo"}))
}
