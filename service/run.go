package service

import (
	"context"
	"fmt"
	"io"
	"os"
)

type runConfig struct {
	out     io.Writer
	spinner bool
}

// RunOption customizes Run.
type RunOption func(*runConfig)

// WithoutSpinner disables the progress spinner, for non-interactive
// output.
func WithoutSpinner() RunOption {
	return func(c *runConfig) { c.spinner = false }
}

// WithOutput redirects spinner output. Defaults to os.Stderr.
func WithOutput(w io.Writer) RunOption {
	return func(c *runConfig) { c.out = w }
}

// Run starts a constructed fixture, showing a spinner while it comes
// up, and returns a cleanup function that stops it. Intended for the
// common pattern:
//
//	svc, err := sink.New()
//	...
//	stop, err := service.Run(ctx, "log sink", svc)
//	...
//	defer stop()
func Run(ctx context.Context, name string, svc Service, opts ...RunOption) (func() error, error) {
	cfg := runConfig{out: os.Stderr, spinner: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	var sp *spinner
	if cfg.spinner {
		sp = startSpinner(cfg.out, fmt.Sprintf("starting %s ...", name))
	}
	err := svc.Start(ctx)
	if sp != nil {
		sp.stop(err == nil)
	}
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	return svc.Stop, nil
}
