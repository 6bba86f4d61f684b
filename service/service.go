// Package service defines the lifecycle contract shared by every
// fixture kind in logtrap: socket-backed fixtures like the sink and
// container-backed fixtures driven through an external runtime. A
// single interface spans both; there is no fixture class hierarchy.
package service

import "context"

// State is the lifecycle state of a fixture. Stopped is terminal: a
// stopped fixture is never restarted, a fresh instance is constructed
// instead.
type State int

const (
	// StateConstructed indicates the fixture was created but not started.
	StateConstructed State = iota
	// StateStarted indicates the fixture is running.
	StateStarted
	// StateStopped indicates the fixture was stopped. Terminal.
	StateStopped
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Network is a handle to a network fabric that containers can join.
// Fixtures that are not part of the fabric (like the sink) accept it
// and ignore it, so heterogeneous fixtures satisfy one contract.
type Network interface {
	Name() string
}

// Service is the capability set every fixture provides.
//
// Connect attaches the fixture to a network and returns the host
// aliases through which peers on that network can reach it.
// Disconnect detaches it again. IsAlive reports whether the fixture is
// currently running, independent of any socket state.
type Service interface {
	Start(ctx context.Context) error
	Stop() error
	IsAlive() bool
	Connect(network Network) ([]string, error)
	Disconnect(network Network) error
}
