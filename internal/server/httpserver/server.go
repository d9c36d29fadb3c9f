// Package httpserver owns the HTTP/HTTPS listener of a webhost instance.
//
// It uses the Go standard library net/http for serving; this file holds the
// lifecycle controller that binds, serves and shuts the listener down.
package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/webhost-go/internal/infra/tlsmaterial"
)

var (
	// ErrBind is returned when the listener cannot bind its port.
	ErrBind = errors.New("httpserver: bind failed")

	// ErrNoCertificate is returned to TLS clients while no usable key pair
	// is installed.
	ErrNoCertificate = errors.New("httpserver: no TLS certificate configured")
)

// State is the lifecycle state of the listener.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ListenFunc opens the listening socket. It matches net.Listen.
type ListenFunc func(network, address string) (net.Listener, error)

// Failure reports that a serve loop ended unexpectedly.
type Failure struct {
	generation uint64
	Err        error
}

// Config configures a Server.
type Config struct {
	// Name labels the instance in logs and events (e.g. "http", "https").
	Name string

	// Secure wraps the listener in TLS.
	Secure bool

	// Handler serves requests.
	Handler http.Handler

	// Bus receives lifecycle events. May be nil.
	Bus *Bus

	// Logger for lifecycle logging.
	Logger *slog.Logger

	// ShutdownTimeout bounds a graceful stop. Default: 5s.
	ShutdownTimeout time.Duration

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration

	// Listen replaces net.Listen.
	Listen ListenFunc
}

// Server is the listener lifecycle controller.
//
// Start, Stop and HandleFailure are called from a single control goroutine.
// Certificate installation may race with TLS handshakes and is guarded.
type Server struct {
	cfg    Config
	logger *slog.Logger

	state atomic.Int32
	port  atomic.Uint32

	httpServer *http.Server
	generation uint64
	failures   chan Failure

	mu    sync.RWMutex
	certs []tlsmaterial.Certificate
	key   *tlsmaterial.PrivateKey
	pair  *tls.Certificate
}

// New creates a stopped listener.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 120 * time.Second
	}
	if cfg.Listen == nil {
		cfg.Listen = net.Listen
	}
	if cfg.Handler == nil {
		cfg.Handler = http.NotFoundHandler()
	}

	return &Server{
		cfg:      cfg,
		logger:   cfg.Logger.With("listener", cfg.Name),
		failures: make(chan Failure, 1),
	}
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// IsListening reports whether the listener accepts connections.
func (s *Server) IsListening() bool {
	return s.State() == StateRunning
}

// Port returns the bound port while running, or the last bound port.
func (s *Server) Port() uint16 {
	return uint16(s.port.Load())
}

// Secure reports whether the listener serves TLS.
func (s *Server) Secure() bool {
	return s.cfg.Secure
}

// Failures delivers serve-loop failures to the control goroutine, which
// passes them back to HandleFailure.
func (s *Server) Failures() <-chan Failure {
	return s.failures
}

// Start binds port and serves in the background.
//
// Start on a running listener is a no-op when the port is unchanged and a
// restart otherwise. A bind failure moves the listener to StateFailed,
// publishes EventError and is returned; there is no retry.
func (s *Server) Start(ctx context.Context, port uint16) error {
	if s.IsListening() {
		if s.Port() == port {
			return nil
		}
		s.logger.Info("port changed while running, restarting", "from", s.Port(), "to", port)
		if err := s.Stop(ctx); err != nil {
			s.logger.Warn("stop before restart failed", "error", err)
		}
	}

	s.setState(StateStarting)

	ln, err := s.cfg.Listen("tcp", net.JoinHostPort("", strconv.Itoa(int(port))))
	if err != nil {
		s.setState(StateFailed)
		err = fmt.Errorf("%w: port %d: %v", ErrBind, port, err)
		s.logger.Error("listener failed to start", "port", port, "error", err)
		s.publish(Event{Kind: EventError, Port: port, Err: err})
		return err
	}

	bound := port
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		bound = uint16(addr.Port)
	}

	if s.cfg.Secure {
		if !s.hasPair() {
			s.logger.Warn("starting without usable TLS material, handshakes will fail until a valid key pair is installed")
		}
		ln = tls.NewListener(ln, s.tlsConfig())
	}

	srv := &http.Server{
		Handler:           s.cfg.Handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		MaxHeaderBytes:    1 << 20, // 1MB
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
	}

	s.generation++
	gen := s.generation
	s.httpServer = srv

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.reportFailure(Failure{generation: gen, Err: err})
		}
	}()

	s.port.Store(uint32(bound))
	s.setState(StateRunning)
	s.logger.Info("listener started", "port", bound, "secure", s.cfg.Secure)
	s.publish(Event{Kind: EventStarted, Port: bound})
	return nil
}

// Stop gracefully shuts the listener down. Stopping a listener that is not
// running is a no-op; a failed listener is reset to StateStopped silently.
func (s *Server) Stop(ctx context.Context) error {
	switch s.State() {
	case StateRunning:
	case StateFailed:
		s.setState(StateStopped)
		return nil
	default:
		return nil
	}

	s.setState(StateStopping)
	port := s.Port()

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("graceful shutdown incomplete, closing connections", "error", err)
		s.httpServer.Close()
	}
	s.httpServer = nil

	s.setState(StateStopped)
	s.logger.Info("listener stopped", "port", port)
	s.publish(Event{Kind: EventStopped, Port: port})
	return err
}

// HandleFailure applies a failure received from Failures. Failures of a
// serve loop that was already replaced are ignored.
func (s *Server) HandleFailure(f Failure) {
	if f.generation != s.generation || !s.IsListening() {
		return
	}

	s.logger.Error("listener stopped serving", "port", s.Port(), "error", f.Err)
	if s.httpServer != nil {
		s.httpServer.Close()
		s.httpServer = nil
	}
	s.setState(StateFailed)
	s.publish(Event{Kind: EventError, Port: s.Port(), Err: f.Err})
}

// SetCertificates installs the certificate chain served to TLS clients.
func (s *Server) SetCertificates(certs []tlsmaterial.Certificate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certs = append([]tlsmaterial.Certificate(nil), certs...)
	s.rebuildPair()
}

// SetPrivateKey installs the private key served to TLS clients.
func (s *Server) SetPrivateKey(key *tlsmaterial.PrivateKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	s.rebuildPair()
}

// Certificates returns the installed certificate chain.
func (s *Server) Certificates() []tlsmaterial.Certificate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]tlsmaterial.Certificate(nil), s.certs...)
}

// PrivateKey returns the installed private key, or nil.
func (s *Server) PrivateKey() *tlsmaterial.PrivateKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// rebuildPair must be called with mu held.
func (s *Server) rebuildPair() {
	pair, err := tlsmaterial.Pair(s.certs, s.key)
	if err != nil {
		s.pair = nil
		return
	}
	if !tlsmaterial.Matches(s.certs, s.key) {
		s.logger.Warn("installed TLS certificate does not match the private key",
			"cert_source", s.certs[0].Source,
			"key_source", s.key.Source,
		)
	}
	s.pair = pair
}

func (s *Server) hasPair() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair != nil
}

func (s *Server) tlsConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		NextProtos: []string{"http/1.1"},
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			s.mu.RLock()
			defer s.mu.RUnlock()
			if s.pair == nil {
				return nil, ErrNoCertificate
			}
			return s.pair, nil
		},
	}
}

func (s *Server) reportFailure(f Failure) {
	select {
	case s.failures <- f:
	default:
		// A failure is already pending; the control loop handles one per serve loop.
	}
}

func (s *Server) setState(st State) {
	s.state.Store(int32(st))
}

func (s *Server) publish(e Event) {
	e.Instance = s.cfg.Name
	e.Secure = s.cfg.Secure
	s.cfg.Bus.Publish(e)
}
