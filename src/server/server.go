package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"schedsim/src/log"
	"schedsim/src/model"
	"schedsim/src/server/stream_handler"
	"time"

	"github.com/quic-go/quic-go"
)

// Server accepts QUIC connections; every stream of a connection runs one
// simulation.
type Server struct {
	serverURL     string
	serverPort    int
	streamHandler *stream_handler.StreamHandler
	logger        *slog.Logger

	listener *quic.Listener
}

func NewServer(serverURL string, serverPort int, streamHandler *stream_handler.StreamHandler, logger *slog.Logger) *Server {
	return &Server{
		serverURL:     serverURL,
		serverPort:    serverPort,
		streamHandler: streamHandler,
		logger:        logger,
	}
}

func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:       5 * time.Minute,
		HandshakeIdleTimeout: 10 * time.Second,
		MaxIncomingStreams:   1000,
	}
}

// Listen binds the UDP socket. Port 0 picks a free port, see Addr.
func (s *Server) Listen() error {
	tlsConf, err := generateTLSConfig()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s:%d", s.serverURL, s.serverPort)
	listener, err := quic.ListenAddr(url, tlsConf, quicConfig())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", url, err)
	}

	s.listener = listener
	s.logger.Info("server listening", "addr", listener.Addr().String())
	return nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until ctx is done, then stops the workers.
func (s *Server) Serve(ctx context.Context) error {
	s.streamHandler.Start()
	defer s.streamHandler.Stop()
	defer s.listener.Close()

	for {
		connection, err := s.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return nil
			}
			s.logger.Warn("accept failed", log.ErrAttr(err))
			continue
		}
		s.onConnectionAccepted(ctx, connection)
	}
}

// Start listens and serves.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) onConnectionAccepted(ctx context.Context, connection quic.Connection) {
	logger := s.logger.With("remote", connection.RemoteAddr().String())
	logger.Debug("connection accepted")

	// accept streams in background
	go func() {
		for {
			stream, err := connection.AcceptStream(ctx)
			if err != nil {
				logger.Debug("connection closed", log.ErrAttr(err))
				return
			}
			go s.streamHandler.HandleStream(ctx, stream)
		}
	}()
}

// Self-signed certificate for the listener. Clients skip verification.
func generateTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		NextProtos:   []string{model.ALPN},
	}, nil
}
