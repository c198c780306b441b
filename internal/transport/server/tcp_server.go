// Package server provides the tuned TCP listener the charger-facing
// WebSocket endpoint runs on: SO_REUSEADDR, TCP_NODELAY, keepalive and
// larger read/write buffers, so a large fleet of long-lived charger
// connections doesn't starve the kernel's default socket settings.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/charging-platform/ocpp-central-system/internal/logger"
)

// TCPServerConfig tunes the listener's socket-level behaviour.
type TCPServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	MaxHeaderBytes     int
	ListenBacklog      int
	KeepAlivePeriod    time.Duration
	EnableTCPKeepAlive bool
}

// DefaultTCPServerConfig returns sane defaults for the charger listener.
func DefaultTCPServerConfig() *TCPServerConfig {
	return &TCPServerConfig{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        60 * time.Second,
		WriteTimeout:       60 * time.Second,
		IdleTimeout:        120 * time.Second,
		MaxHeaderBytes:     1 << 20,
		ListenBacklog:      4096,
		KeepAlivePeriod:    30 * time.Second,
		EnableTCPKeepAlive: true,
	}
}

// OptimizedTCPServer serves handler over a tuned TCP listener.
type OptimizedTCPServer struct {
	config   *TCPServerConfig
	server   *http.Server
	listener net.Listener
	logger   *logger.Logger
}

// NewOptimizedTCPServer builds an OptimizedTCPServer.
func NewOptimizedTCPServer(config *TCPServerConfig, handler http.Handler, log *logger.Logger) *OptimizedTCPServer {
	server := &http.Server{
		Addr:           net.JoinHostPort(config.Host, fmt.Sprintf("%d", config.Port)),
		Handler:        handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return &OptimizedTCPServer{
		config: config,
		server: server,
		logger: log,
	}
}

func (s *OptimizedTCPServer) createOptimizedListener() (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
				syscall.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1)
			})
		},
		KeepAlive: s.config.KeepAlivePeriod,
	}

	addr := net.JoinHostPort(s.config.Host, fmt.Sprintf("%d", s.config.Port))
	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, err
	}

	if tcpListener, ok := listener.(*net.TCPListener); ok {
		return &optimizedTCPListener{
			TCPListener: tcpListener,
			config:      s.config,
		}, nil
	}
	return listener, nil
}

// optimizedTCPListener applies per-connection socket tuning on Accept.
type optimizedTCPListener struct {
	*net.TCPListener
	config *TCPServerConfig
}

func (l *optimizedTCPListener) Accept() (net.Conn, error) {
	conn, err := l.TCPListener.AcceptTCP()
	if err != nil {
		return nil, err
	}

	if l.config.EnableTCPKeepAlive {
		conn.SetKeepAlive(true)
		conn.SetKeepAlivePeriod(l.config.KeepAlivePeriod)
	}
	conn.SetNoDelay(true)
	conn.SetReadBuffer(64 * 1024)
	conn.SetWriteBuffer(64 * 1024)

	return conn, nil
}

// Start runs the listener and blocks until it is closed or Serve fails.
func (s *OptimizedTCPServer) Start() error {
	listener, err := s.createOptimizedListener()
	if err != nil {
		return err
	}

	s.listener = listener
	s.logger.Infof("tuned TCP server listening on %s", listener.Addr().String())

	return s.server.Serve(listener)
}

// Stop gracefully shuts the server down, falling back to a hard close.
func (s *OptimizedTCPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping tuned TCP server")
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.ErrorWithErr(err, "error during server shutdown")
		return s.server.Close()
	}
	s.logger.Info("tuned TCP server stopped")
	return nil
}

// Addr returns the listener's bound address, or nil if not yet started.
func (s *OptimizedTCPServer) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}
