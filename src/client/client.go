package client

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"schedsim/src/client/netstats"
	"schedsim/src/model"
	"time"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"
)

// Client submits scenarios to a trace server and follows the runs.
type Client struct {
	serverURL  string
	serverPort int
	logger     *slog.Logger
	stats      *netstats.StatsCollector
}

func NewClient(serverURL string, serverPort int, logger *slog.Logger) *Client {
	return &Client{
		serverURL:  serverURL,
		serverPort: serverPort,
		logger:     logger,
		stats:      netstats.New(16),
	}
}

func (c *Client) Stats() *netstats.StatsCollector {
	return c.stats
}

// Watch runs scenario under bundle on the server and calls onMessage for
// every message received, the final one included. It returns the summary,
// or the run error reported by the server.
func (c *Client) Watch(ctx context.Context, bundle string, scenario []byte, onMessage func(model.Message)) (*model.Summary, error) {
	url := fmt.Sprintf("%s:%d", c.serverURL, c.serverPort)

	tlsConf := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{model.ALPN},
	}
	config := &quic.Config{
		MaxIdleTimeout:       5 * time.Minute,
		HandshakeIdleTimeout: 10 * time.Second,
	}

	connection, err := quic.DialAddr(ctx, url, tlsConf, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer connection.CloseWithError(0, "")

	stream, err := connection.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	req := &model.SimulationRequest{ID: uuid.New(), Bundle: bundle, Scenario: scenario}
	if err := c.sendRequest(stream, req); err != nil {
		return nil, err
	}
	c.logger.Debug("request sent", "run", req.ID.String(), "bundle", bundle)

	summary, err := c.receive(stream, req.ID, onMessage)
	if entry := c.stats.Finish(req.ID); entry != nil {
		c.logger.Info("run received",
			"run", req.ID.String(),
			"messages", entry.Messages,
			"bytes", entry.Bytes,
			"join_latency", entry.JoinLatency().String(),
			"rate", entry.Rate(),
		)
	}
	return summary, err
}

// Send the request and close our side of the stream.
func (c *Client) sendRequest(stream quic.Stream, req *model.SimulationRequest) error {
	if err := req.Write(stream); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	c.stats.RecordSend(req.ID)
	return stream.Close()
}

func (c *Client) receive(stream io.Reader, id uuid.UUID, onMessage func(model.Message)) (*model.Summary, error) {
	counter := &countingReader{inner: stream}
	reader := bufio.NewReader(counter)

	for {
		msg, err := model.ReadMessage(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read from server: %w", err)
		}
		c.stats.RecordRecv(id, counter.take())

		if onMessage != nil {
			onMessage(msg)
		}

		switch m := msg.(type) {
		case *model.Summary:
			return m, nil
		case *model.RunError:
			return nil, m
		}
	}
}

type countingReader struct {
	inner io.Reader
	n     int
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	r.n += n
	return n, err
}

// Bytes read since the previous call.
func (r *countingReader) take() int {
	n := r.n
	r.n = 0
	return n
}
