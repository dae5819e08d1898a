package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"schedsim/src/client"
	"schedsim/src/log"
	"schedsim/src/model"
	"schedsim/src/scenario"
	"schedsim/src/server"
	"schedsim/src/server/bundle"
	"schedsim/src/server/kernel"
	"schedsim/src/server/simulator"
	"schedsim/src/server/stream_handler"
	"schedsim/src/tracing"
	"strconv"
	"strings"
)

const version = "0.1.0"

const usage = `usage:
  schedsim run <scenario.yaml> <bundle>
  schedsim serve <addr> <port>
  schedsim watch <addr> <port> <scenario.yaml> <bundle>
  schedsim bundles

environment:
  SCHEDSIM_LOG_LEVEL    debug, info, warn or error (default info)
  SCHEDSIM_TRACE_FILE   write OpenTelemetry spans to this file
  SCHEDSIM_METRICS_DIR  write CSV metrics under this directory
`

func main() {
	logger := log.BuildLogger(os.Getenv("SCHEDSIM_LOG_LEVEL"))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if file := os.Getenv("SCHEDSIM_TRACE_FILE"); file != "" {
		if err := tracing.Init("schedsim", version, file); err != nil {
			logger.Warn("tracing disabled", log.ErrAttr(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := &cli{
		out:        os.Stdout,
		metricsDir: os.Getenv("SCHEDSIM_METRICS_DIR"),
		logger:     logger,
	}

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "run":
		err = cli.run(ctx, args)
	case "serve":
		err = cli.serve(ctx, args)
	case "watch":
		err = cli.watch(ctx, args)
	case "bundles":
		cli.bundles()
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error(os.Args[1]+" failed", log.ErrAttr(err))
		stop()
		os.Exit(1)
	}
}

type cli struct {
	out        io.Writer
	metricsDir string
	logger     *slog.Logger
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("run needs <scenario.yaml> <bundle>")
	}

	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	b, err := bundle.Lookup(args[1])
	if err != nil {
		return err
	}

	var sim *simulator.Simulator
	show := simulator.ObserverFunc(func(_ *kernel.State, e *model.TickEvent) error {
		c.printMessage(e, sim.Describe)
		return nil
	})

	sim, err = simulator.New(sc, b, simulator.WithLogger(c.logger), simulator.WithObserver(show))
	if err != nil {
		return err
	}

	summary, runErr := sim.Run(ctx)
	if errors.Is(runErr, kernel.ErrInvariant) || errors.Is(runErr, simulator.ErrDeadlock) {
		sim.State().Dump(os.Stderr)
	}
	c.printMessage(summary, nil)

	if c.metricsDir != "" {
		dir := filepath.Join(c.metricsDir, sim.ID().String())
		if err := sim.Metrics().WriteCSV(dir); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "metrics written to %s\n", dir)
	}
	return runErr
}

func (c *cli) serve(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("serve needs <addr> <port>")
	}
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[1], err)
	}

	workers := runtime.NumCPU()
	handler := stream_handler.NewStreamHandler(workers*16, workers, c.metricsDir, c.logger)
	return server.NewServer(args[0], port, handler, c.logger).Start(ctx)
}

func (c *cli) watch(ctx context.Context, args []string) error {
	if len(args) != 4 {
		return errors.New("watch needs <addr> <port> <scenario.yaml> <bundle>")
	}
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[1], err)
	}

	data, err := os.ReadFile(args[2])
	if err != nil {
		return err
	}

	cl := client.NewClient(args[0], port, c.logger)
	_, err = cl.Watch(ctx, args[3], data, func(m model.Message) {
		c.printMessage(m, nil)
	})
	return err
}

func (c *cli) bundles() {
	for _, b := range bundle.All() {
		fmt.Fprintf(c.out, "%-5s %s\n", b.Alias, b.Name)
	}
}

func (c *cli) printMessage(msg model.Message, describe func(model.Handle) string) {
	if describe == nil {
		describe = func(h model.Handle) string { return strconv.Itoa(int(h)) }
	}

	switch m := msg.(type) {
	case *model.TickEvent:
		running := "idle"
		if m.Running != model.None {
			running = describe(m.Running)
		}
		fmt.Fprintf(c.out, "%5d  %-9s %-16s ready %s blocked %s\n",
			m.Tick, m.Decision, running, model.FormatArray(m.Ready), model.FormatArray(m.Blocked))
	case *model.Summary:
		fmt.Fprintf(c.out, "\n%s: %d ticks, %d processes\n", m.Bundle, m.Ticks, m.Processes)
		fmt.Fprintf(c.out, "  context switches %d, preemptions %d, idle ticks %d, inversions %d\n",
			m.ContextSwitches, m.Preemptions, m.IdleTicks, m.Inversions)
		fmt.Fprintf(c.out, "  avg turnaround %.2f, avg wait %.2f, fairness %.3f\n",
			m.AvgTurnaround, m.AvgWait, m.Jain)
	case *model.RunError:
		fmt.Fprintf(c.out, "run %s failed: %s\n", m.RunID, strings.TrimSpace(m.Message))
	}
}
