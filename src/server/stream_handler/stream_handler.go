package stream_handler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"schedsim/src/log"
	"schedsim/src/model"
	"schedsim/src/scenario"
	"schedsim/src/server/bundle"
	"schedsim/src/server/kernel"
	"schedsim/src/server/simulator"
)

// The part of a QUIC stream the handler needs.
type Stream interface {
	io.Reader
	io.Writer
	Close() error
}

// StreamHandler turns each incoming stream into one simulation run. The
// request is read right away; the run waits for a free worker and streams
// its ticks back, then a summary or an error.
type StreamHandler struct {
	taskScheduler *TaskScheduler
	workers       int
	logger        *slog.Logger
	// Per-run CSV metrics are written under this directory when set.
	metricsDir string
}

func NewStreamHandler(capacity int, workers int, metricsDir string, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		taskScheduler: NewTaskScheduler(capacity),
		workers:       workers,
		logger:        logger,
		metricsDir:    metricsDir,
	}
}

func (s *StreamHandler) Start() {
	s.taskScheduler.Start(s.workers)
}

func (s *StreamHandler) Stop() {
	s.taskScheduler.Stop()
}

func (s *StreamHandler) HandleStream(ctx context.Context, stream Stream) {
	req, err := model.ReadSimulationRequest(bufio.NewReader(stream))
	if err != nil {
		s.logger.Warn("invalid request", log.ErrAttr(err))
		_ = stream.Close()
		return
	}

	s.logger.Info("simulation requested", "run", req.ID.String(), "bundle", req.Bundle)

	ok := s.taskScheduler.Enqueue(func() {
		s.handleRequest(ctx, stream, req)
	})
	if !ok {
		s.logger.Warn("task enqueue failed", "run", req.ID.String())
		s.reply(stream, &model.RunError{RunID: req.ID, Message: "server busy"})
		_ = stream.Close()
	}
}

func (s *StreamHandler) handleRequest(ctx context.Context, stream Stream, req *model.SimulationRequest) {
	defer stream.Close()

	summary, err := s.simulate(ctx, stream, req)
	if err != nil {
		s.reply(stream, &model.RunError{RunID: req.ID, Message: err.Error()})
		return
	}
	s.reply(stream, summary)
}

func (s *StreamHandler) simulate(ctx context.Context, w io.Writer, req *model.SimulationRequest) (*model.Summary, error) {
	sc, err := scenario.Parse(req.Scenario)
	if err != nil {
		return nil, err
	}
	b, err := bundle.Lookup(req.Bundle)
	if err != nil {
		return nil, err
	}

	send := simulator.ObserverFunc(func(_ *kernel.State, e *model.TickEvent) error {
		if err := e.Write(w); err != nil {
			return fmt.Errorf("failed to send tick %d: %w", e.Tick, err)
		}
		return nil
	})

	sim, err := simulator.New(sc, b,
		simulator.WithRunID(req.ID),
		simulator.WithLogger(s.logger),
		simulator.WithObserver(send),
	)
	if err != nil {
		return nil, err
	}

	summary, err := sim.Run(ctx)
	if s.metricsDir != "" {
		dir := filepath.Join(s.metricsDir, req.ID.String())
		if err := sim.Metrics().WriteCSV(dir); err != nil {
			s.logger.Warn("metrics not written", "run", req.ID.String(), log.ErrAttr(err))
		}
	}
	return summary, err
}

func (s *StreamHandler) reply(stream Stream, msg model.Message) {
	if err := msg.Write(stream); err != nil {
		s.logger.Warn("reply failed", log.ErrAttr(err))
	}
}
