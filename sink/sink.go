// Package sink implements a fake log-collector fixture: a TCP service
// that accepts arbitrary connections speaking delimiter-separated JSON
// (by default the newline-delimited "json_lines" wire format), records
// every decoded object, and offers query and assertion helpers so test
// code can verify what was logged.
//
// The fixture is deterministic by construction: a single reactor
// goroutine performs all decoding and every store append, failures are
// terminal to their scope (one connection, or the whole service), and
// nothing is ever retried.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/coffersTech/logtrap/service"
)

const (
	defaultStopTimeout  = 5 * time.Second
	defaultWakeInterval = 5 * time.Second
	defaultChunkSize    = 1024

	// localHost resolves from the machine running the tests.
	localHost = "localhost"
	// containerHost resolves from inside containers, through the
	// runtime's host gateway.
	containerHost = "host.docker.internal"
)

type config struct {
	port         int
	logger       *slog.Logger
	delim        []byte
	chunkSize    int
	stopTimeout  time.Duration
	wakeInterval time.Duration
}

// Option customizes a Service at construction.
type Option func(*config)

// WithPort requests a specific listen port. The default 0 lets the OS
// assign an ephemeral port.
func WithPort(port int) Option {
	return func(c *config) { c.port = port }
}

// WithLogger sets the logger the service reports through. Defaults to
// slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithDelimiter sets the byte sequence separating frames on the wire.
// Defaults to a single newline.
func WithDelimiter(delim []byte) Option {
	return func(c *config) { c.delim = delim }
}

// WithStopTimeout bounds how long Stop waits for the reactor to exit.
func WithStopTimeout(d time.Duration) Option {
	return func(c *config) { c.stopTimeout = d }
}

// WithWakeInterval bounds the reactor's idle wait. The reactor stays
// responsive without it; this only caps how long it sleeps with no
// traffic.
func WithWakeInterval(d time.Duration) Option {
	return func(c *config) { c.wakeInterval = d }
}

// WithReadChunkSize sets the per-read buffer size on connections.
func WithReadChunkSize(n int) Option {
	return func(c *config) { c.chunkSize = n }
}

// Service is a fake log-collector. Construct with New, which binds the
// listen port immediately; Start launches the reactor; Stop is
// terminal. The zero value is not usable.
type Service struct {
	listener     net.Listener
	port         int
	logger       *slog.Logger
	delim        []byte
	chunkSize    int
	stopTimeout  time.Duration
	wakeInterval time.Duration

	records *Records

	mu    sync.Mutex
	state service.State

	// Shutdown coordinator: shutdown carries the stop sentinel into
	// the reactor, done is closed by the reactor on exit.
	shutdown chan struct{}
	done     chan struct{}

	accepted chan net.Conn
	events   chan readEvent
}

var _ service.Service = (*Service)(nil)

// New binds a TCP listener on all interfaces and returns a constructed
// service. The resolved port is available immediately via Port. An
// unavailable port returns an error wrapping ErrBind.
func New(opts ...Option) (*Service, error) {
	cfg := config{
		logger:       slog.Default(),
		delim:        []byte{'\n'},
		chunkSize:    defaultChunkSize,
		stopTimeout:  defaultStopTimeout,
		wakeInterval: defaultWakeInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.delim) == 0 {
		return nil, fmt.Errorf("delimiter must not be empty")
	}
	if cfg.chunkSize <= 0 {
		return nil, fmt.Errorf("read chunk size must be positive")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.port))
	if err != nil {
		return nil, fmt.Errorf("%w %d: %v", ErrBind, cfg.port, err)
	}

	return &Service{
		listener:     ln,
		port:         ln.Addr().(*net.TCPAddr).Port,
		logger:       cfg.logger,
		delim:        cfg.delim,
		chunkSize:    cfg.chunkSize,
		stopTimeout:  cfg.stopTimeout,
		wakeInterval: cfg.wakeInterval,
		records:      &Records{},
		shutdown:     make(chan struct{}, 1),
		done:         make(chan struct{}),
		accepted:     make(chan net.Conn),
		events:       make(chan readEvent),
	}, nil
}

// Port returns the resolved listen port.
func (s *Service) Port() int { return s.port }

// LocalHost returns the host name clients on the local machine connect
// to.
func (s *Service) LocalHost() string { return localHost }

// ContainerHost returns the host name clients inside containers
// connect to.
func (s *Service) ContainerHost() string { return containerHost }

// Addr returns the local-machine address of the service,
// host:port.
func (s *Service) Addr() string {
	return net.JoinHostPort(s.LocalHost(), fmt.Sprintf("%d", s.port))
}

// Records returns the store of decoded records.
func (s *Service) Records() *Records { return s.records }

// Start launches the reactor. Returns ErrAlreadyStarted on a running
// service and ErrStopped on a stopped one. Cancelling ctx exits the
// reactor the same way the shutdown coordinator does.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case service.StateStarted:
		return ErrAlreadyStarted
	case service.StateStopped:
		return ErrStopped
	}
	s.state = service.StateStarted
	go s.acceptLoop()
	go s.run(ctx)
	s.logger.Info("log sink started", "port", s.port)
	return nil
}

// Stop signals the reactor and waits for it to exit, up to the stop
// timeout. A timeout returns ErrStopTimeout and is never retried. Stop
// on a service that is not running, including a second Stop after a
// successful one, is a no-op.
func (s *Service) Stop() error {
	s.mu.Lock()
	if s.state != service.StateStarted {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	select {
	case s.shutdown <- struct{}{}:
	default:
		// Sentinel already pending from a concurrent Stop.
	}

	select {
	case <-s.done:
	case <-time.After(s.stopTimeout):
		return fmt.Errorf("%w (%s)", ErrStopTimeout, s.stopTimeout)
	}

	s.mu.Lock()
	s.state = service.StateStopped
	s.mu.Unlock()
	s.logger.Info("log sink stopped", "port", s.port, "records", s.records.Len())
	return nil
}

// IsAlive reports whether the reactor is currently running,
// independent of socket state.
func (s *Service) IsAlive() bool {
	select {
	case <-s.done:
		return false
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == service.StateStarted
}

// Connect satisfies the fixture contract. The sink is not part of the
// container network fabric, so this does nothing except return the
// alias through which containers on any network reach it.
func (s *Service) Connect(service.Network) ([]string, error) {
	return []string{s.ContainerHost()}, nil
}

// Disconnect satisfies the fixture contract. Does nothing.
func (s *Service) Disconnect(service.Network) error { return nil }
