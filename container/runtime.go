// Package container provides fixtures backed by an external container
// runtime. The runtime itself is a collaborator behind the Container
// and Network contracts; this package only sequences lifecycle calls
// against it and adapts the result to the shared service contract.
package container

import (
	"context"

	"github.com/coffersTech/logtrap/service"
)

// Container is the slice of the runtime's container API the fixtures
// drive.
type Container interface {
	ID() string

	// Running reports whether the container's main process is
	// currently executing.
	Running() (bool, error)

	Start(ctx context.Context) error

	// Kill sends the named signal to the container's main process.
	Kill(ctx context.Context, signal string) error

	// Wait blocks until the container exits or ctx is done.
	Wait(ctx context.Context) error

	// Remove deletes the container. removeVolumes also deletes its
	// anonymous volumes.
	Remove(ctx context.Context, removeVolumes bool) error

	// Aliases returns the names under which the container is
	// reachable on the named network.
	Aliases(network string) []string
}

// Network is the runtime's network handle. It extends the opaque
// fabric handle of the service contract with the operations
// container-backed fixtures need.
type Network interface {
	service.Network

	Connect(ctx context.Context, c Container) error
	Disconnect(ctx context.Context, c Container, force bool) error

	// Containers lists the containers currently connected.
	Containers(ctx context.Context) ([]Container, error)

	// Remove deletes the network from the runtime.
	Remove(ctx context.Context) error
}
