package container

import (
	"context"
	"fmt"
	"time"
)

const defaultCleanupTimeout = 10 * time.Second

// Killing returns a cleanup function that kills the container if it is
// still running and waits for it to exit. Meant for defer:
//
//	defer container.Killing(c, "SIGKILL")()
func Killing(c Container, signal string) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), defaultCleanupTimeout)
		defer cancel()

		running, err := c.Running()
		if err != nil {
			return fmt.Errorf("inspect container %s: %w", c.ID(), err)
		}
		if !running {
			return nil
		}
		if err := c.Kill(ctx, signal); err != nil {
			return fmt.Errorf("kill container %s: %w", c.ID(), err)
		}
		if err := c.Wait(ctx); err != nil {
			return fmt.Errorf("wait for container %s: %w", c.ID(), err)
		}
		return nil
	}
}

// Disconnecting returns a cleanup function that detaches every
// container still on the network and removes the network from the
// runtime. Meant for defer, mirroring Killing.
func Disconnecting(n Network) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), defaultCleanupTimeout)
		defer cancel()

		containers, err := n.Containers(ctx)
		if err != nil {
			return fmt.Errorf("list containers on %s: %w", n.Name(), err)
		}
		for _, c := range containers {
			if err := n.Disconnect(ctx, c, false); err != nil {
				return fmt.Errorf("disconnect container %s from %s: %w", c.ID(), n.Name(), err)
			}
		}
		if err := n.Remove(ctx); err != nil {
			return fmt.Errorf("remove network %s: %w", n.Name(), err)
		}
		return nil
	}
}
