package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coffersTech/logtrap/service"
)

const defaultStopTimeout = 10 * time.Second

type serviceConfig struct {
	remove      bool
	stopSignal  string
	stopTimeout time.Duration
	logger      *slog.Logger
	endpoints   []Container
}

// ServiceOption customizes a ContainerService.
type ServiceOption func(*serviceConfig)

// KeepContainers leaves the containers in place after Stop instead of
// removing them.
func KeepContainers() ServiceOption {
	return func(c *serviceConfig) { c.remove = false }
}

// WithStopSignal sets the signal Stop sends. Defaults to SIGTERM.
func WithStopSignal(signal string) ServiceOption {
	return func(c *serviceConfig) { c.stopSignal = signal }
}

// WithStopTimeout bounds how long Stop waits for each container to
// exit after signalling it.
func WithStopTimeout(d time.Duration) ServiceOption {
	return func(c *serviceConfig) { c.stopTimeout = d }
}

// WithLogger sets the logger the service reports through.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(c *serviceConfig) { c.logger = logger }
}

// WithEndpoints restricts Connect and Disconnect to the given
// containers. By default every container is an endpoint.
func WithEndpoints(endpoints ...Container) ServiceOption {
	return func(c *serviceConfig) { c.endpoints = endpoints }
}

// ContainerService runs a fixture made of one or more containers. The
// slice must be ordered so that starting the containers front to back
// is safe; Stop tears them down in reverse.
type ContainerService struct {
	containers  []Container
	endpoints   []Container
	remove      bool
	stopSignal  string
	stopTimeout time.Duration
	logger      *slog.Logger
}

var _ service.Service = (*ContainerService)(nil)

// NewService creates a container-backed fixture over the given
// containers.
func NewService(containers []Container, opts ...ServiceOption) *ContainerService {
	cfg := serviceConfig{
		remove:      true,
		stopSignal:  "SIGTERM",
		stopTimeout: defaultStopTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.endpoints == nil {
		cfg.endpoints = containers
	}
	return &ContainerService{
		containers:  containers,
		endpoints:   cfg.endpoints,
		remove:      cfg.remove,
		stopSignal:  cfg.stopSignal,
		stopTimeout: cfg.stopTimeout,
		logger:      cfg.logger,
	}
}

// Start starts the containers in order, skipping any that are already
// running.
func (s *ContainerService) Start(ctx context.Context) error {
	for _, c := range s.containers {
		running, err := c.Running()
		if err != nil {
			return fmt.Errorf("inspect container %s: %w", c.ID(), err)
		}
		if running {
			continue
		}
		if err := c.Start(ctx); err != nil {
			return fmt.Errorf("start container %s: %w", c.ID(), err)
		}
		s.logger.Debug("container started", "container", c.ID())
	}
	return nil
}

// Stop tears the containers down in reverse order: signal, wait for
// exit bounded by the stop timeout, then remove unless KeepContainers
// was set.
func (s *ContainerService) Stop() error {
	for i := len(s.containers) - 1; i >= 0; i-- {
		c := s.containers[i]
		running, err := c.Running()
		if err != nil {
			return fmt.Errorf("inspect container %s: %w", c.ID(), err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
		if running {
			if err := c.Kill(ctx, s.stopSignal); err != nil {
				cancel()
				return fmt.Errorf("kill container %s: %w", c.ID(), err)
			}
			if err := c.Wait(ctx); err != nil {
				cancel()
				return fmt.Errorf("wait for container %s: %w", c.ID(), err)
			}
		}
		if s.remove {
			if err := c.Remove(ctx, true); err != nil {
				cancel()
				return fmt.Errorf("remove container %s: %w", c.ID(), err)
			}
		}
		cancel()
		s.logger.Debug("container stopped", "container", c.ID())
	}
	return nil
}

// IsAlive reports whether every container is running.
func (s *ContainerService) IsAlive() bool {
	for _, c := range s.containers {
		running, err := c.Running()
		if err != nil || !running {
			return false
		}
	}
	return true
}

// Connect joins the endpoint containers to the network and returns
// their aliases on it.
func (s *ContainerService) Connect(network service.Network) ([]string, error) {
	n, ok := network.(Network)
	if !ok {
		return nil, fmt.Errorf("network %s is not a container runtime network", network.Name())
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	var aliases []string
	for _, ec := range s.endpoints {
		if err := n.Connect(ctx, ec); err != nil {
			return nil, fmt.Errorf("connect container %s to %s: %w", ec.ID(), n.Name(), err)
		}
		aliases = append(aliases, ec.Aliases(n.Name())...)
	}
	return aliases, nil
}

// Disconnect detaches the endpoint containers from the network in
// reverse order.
func (s *ContainerService) Disconnect(network service.Network) error {
	n, ok := network.(Network)
	if !ok {
		return fmt.Errorf("network %s is not a container runtime network", network.Name())
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	for i := len(s.endpoints) - 1; i >= 0; i-- {
		ec := s.endpoints[i]
		if err := n.Disconnect(ctx, ec, false); err != nil {
			return fmt.Errorf("disconnect container %s from %s: %w", ec.ID(), n.Name(), err)
		}
	}
	return nil
}

// SingleContainerService is a fixture backed by exactly one container,
// which is also its only endpoint.
type SingleContainerService struct {
	*ContainerService
}

// NewSingleService creates a fixture around one container.
func NewSingleService(c Container, opts ...ServiceOption) *SingleContainerService {
	opts = append(opts, WithEndpoints(c))
	return &SingleContainerService{NewService([]Container{c}, opts...)}
}

// Container returns the backing container.
func (s *SingleContainerService) Container() Container {
	return s.containers[0]
}
