package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService is a minimal fixture with injectable behavior, for
// exercising the contract helpers.
type stubService struct {
	startErr   error
	startCalls int
	stopCalls  int
	alive      bool
}

func (s *stubService) Start(ctx context.Context) error {
	s.startCalls++
	if s.startErr != nil {
		return s.startErr
	}
	s.alive = true
	return nil
}

func (s *stubService) Stop() error {
	s.stopCalls++
	s.alive = false
	return nil
}

func (s *stubService) IsAlive() bool { return s.alive }

func (s *stubService) Connect(Network) ([]string, error) { return nil, nil }

func (s *stubService) Disconnect(Network) error { return nil }

func TestStateString(t *testing.T) {
	assert.Equal(t, "constructed", StateConstructed.String())
	assert.Equal(t, "started", StateStarted.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestRunStartsAndReturnsCleanup(t *testing.T) {
	svc := &stubService{}
	var out bytes.Buffer

	stop, err := Run(context.Background(), "stub", svc, WithOutput(&out), WithoutSpinner())
	require.NoError(t, err)
	assert.Equal(t, 1, svc.startCalls)
	assert.True(t, svc.IsAlive())

	require.NoError(t, stop())
	assert.Equal(t, 1, svc.stopCalls)
	assert.False(t, svc.IsAlive())
}

func TestRunPropagatesStartError(t *testing.T) {
	startErr := errors.New("port in use")
	svc := &stubService{startErr: startErr}
	var out bytes.Buffer

	stop, err := Run(context.Background(), "stub", svc, WithOutput(&out), WithoutSpinner())
	require.ErrorIs(t, err, startErr)
	assert.Nil(t, stop)
	assert.Zero(t, svc.stopCalls)
}

func TestRunSpinnerOutput(t *testing.T) {
	svc := &stubService{}
	var out bytes.Buffer

	stop, err := Run(context.Background(), "noisy stub", svc, WithOutput(&out))
	require.NoError(t, err)
	require.NoError(t, stop())

	assert.Contains(t, out.String(), "starting noisy stub ...")
}

func TestRunSpinnerFailureGlyph(t *testing.T) {
	svc := &stubService{startErr: errors.New("nope")}
	var out bytes.Buffer

	_, err := Run(context.Background(), "broken stub", svc, WithOutput(&out))
	require.Error(t, err)
	assert.Contains(t, out.String(), "starting broken stub ...")
}
