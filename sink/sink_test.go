package sink

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startSink(t *testing.T, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	svc, err := New(opts...)
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop() })
	return svc
}

func dialSink(t *testing.T, svc *Service) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", svc.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForRecords(t *testing.T, svc *Service, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return svc.Records().Len() >= n },
		2*time.Second, 5*time.Millisecond)
}

func TestSinkRecordsSingleFrame(t *testing.T) {
	svc := startSink(t)
	conn := dialSink(t, svc)

	_, err := conn.Write([]byte(`{"level":"ERROR","message":"x"}` + "\n"))
	require.NoError(t, err)

	waitForRecords(t, svc, 1)
	require.NoError(t, svc.Stop())

	records := svc.Records().All()
	require.Len(t, records, 1)
	assert.Equal(t, "ERROR", records[0]["level"])
	assert.Equal(t, "x", records[0]["message"])
	svc.Records().AssertHasAtLeast(t, LevelError)
}

func TestSinkPreservesFrameOrder(t *testing.T) {
	svc := startSink(t)
	conn := dialSink(t, svc)

	_, err := conn.Write([]byte(`{"level":"INFO"}` + "\n" + `{"level":"WARNING"}` + "\n"))
	require.NoError(t, err)

	waitForRecords(t, svc, 2)
	require.NoError(t, svc.Stop())

	records := svc.Records().All()
	require.Len(t, records, 2)
	assert.Equal(t, "INFO", records[0]["level"])
	assert.Equal(t, "WARNING", records[1]["level"])
}

func TestSinkFrameSplitAcrossWrites(t *testing.T) {
	svc := startSink(t)
	conn := dialSink(t, svc)

	payload := []byte(`{"level":"INFO","message":"split"}` + "\n")
	for _, b := range payload {
		_, err := conn.Write([]byte{b})
		require.NoError(t, err)
	}

	waitForRecords(t, svc, 1)
	require.NoError(t, svc.Stop())
	assert.Equal(t, "split", svc.Records().All()[0]["message"])
}

func TestSinkEphemeralPort(t *testing.T) {
	svc, err := New(WithLogger(quietLogger()))
	require.NoError(t, err)
	defer svc.Stop()
	assert.NotZero(t, svc.Port())
	assert.Equal(t, "localhost", svc.LocalHost())
	assert.Equal(t, "host.docker.internal", svc.ContainerHost())
}

func TestSinkBindError(t *testing.T) {
	taken, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer taken.Close()

	port := taken.Addr().(*net.TCPAddr).Port
	_, err = New(WithPort(port), WithLogger(quietLogger()))
	require.ErrorIs(t, err, ErrBind)
}

func TestSinkLifecycleGuards(t *testing.T) {
	svc, err := New(WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.False(t, svc.IsAlive())
	require.NoError(t, svc.Stop()) // stop before start is a no-op

	require.NoError(t, svc.Start(context.Background()))
	assert.True(t, svc.IsAlive())
	require.ErrorIs(t, svc.Start(context.Background()), ErrAlreadyStarted)

	require.NoError(t, svc.Stop())
	assert.False(t, svc.IsAlive())
	require.NoError(t, svc.Stop()) // second stop is a no-op

	// Stopped is terminal.
	require.ErrorIs(t, svc.Start(context.Background()), ErrStopped)
}

func TestSinkStopClosesListener(t *testing.T) {
	svc := startSink(t)
	addr := svc.Addr()
	require.NoError(t, svc.Stop())

	_, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	assert.Error(t, err)
}

func TestSinkMalformedFrameClosesOnlyThatConnection(t *testing.T) {
	svc := startSink(t)
	good := dialSink(t, svc)
	bad := dialSink(t, svc)

	_, err := good.Write([]byte(`{"level":"INFO","message":"first"}` + "\n"))
	require.NoError(t, err)
	waitForRecords(t, svc, 1)

	_, err = bad.Write([]byte("{not json\n"))
	require.NoError(t, err)

	// The service closes the offending connection; the peer observes
	// EOF or a reset.
	require.Eventually(t, func() bool {
		bad.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		_, err := bad.Read(make([]byte, 1))
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return false
		}
		return err != nil
	}, 2*time.Second, 20*time.Millisecond)

	// The good connection keeps recording.
	_, err = good.Write([]byte(`{"level":"ERROR","message":"second"}` + "\n"))
	require.NoError(t, err)
	waitForRecords(t, svc, 2)

	require.NoError(t, svc.Stop())
	records := svc.Records().All()
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0]["message"])
	assert.Equal(t, "second", records[1]["message"])
}

func TestSinkPeerCloseIsNotAnError(t *testing.T) {
	svc := startSink(t)
	conn := dialSink(t, svc)

	_, err := conn.Write([]byte(`{"level":"INFO"}` + "\n"))
	require.NoError(t, err)
	waitForRecords(t, svc, 1)
	require.NoError(t, conn.Close())

	// Service keeps running and still accepts new connections.
	time.Sleep(20 * time.Millisecond)
	assert.True(t, svc.IsAlive())
	second := dialSink(t, svc)
	_, err = second.Write([]byte(`{"level":"WARN"}` + "\n"))
	require.NoError(t, err)
	waitForRecords(t, svc, 2)
}

func TestSinkInterleavesConnections(t *testing.T) {
	svc := startSink(t)
	a := dialSink(t, svc)
	b := dialSink(t, svc)

	_, err := a.Write([]byte(`{"c":"a","i":1}` + "\n" + `{"c":"a","i":2}` + "\n"))
	require.NoError(t, err)
	_, err = b.Write([]byte(`{"c":"b","i":1}` + "\n" + `{"c":"b","i":2}` + "\n"))
	require.NoError(t, err)

	waitForRecords(t, svc, 4)
	require.NoError(t, svc.Stop())

	// Per-connection order is strict; cross-connection interleaving
	// is unconstrained.
	var aSeq, bSeq []float64
	for _, rec := range svc.Records().All() {
		switch rec["c"] {
		case "a":
			aSeq = append(aSeq, rec["i"].(float64))
		case "b":
			bSeq = append(bSeq, rec["i"].(float64))
		}
	}
	assert.Equal(t, []float64{1, 2}, aSeq)
	assert.Equal(t, []float64{1, 2}, bSeq)
}

func TestSinkContextCancelExitsReactor(t *testing.T) {
	svc, err := New(WithLogger(quietLogger()))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, svc.Start(ctx))

	cancel()
	require.Eventually(t, func() bool { return !svc.IsAlive() },
		2*time.Second, 5*time.Millisecond)
	require.NoError(t, svc.Stop())
}

func TestSinkCustomDelimiterOnWire(t *testing.T) {
	svc := startSink(t, WithDelimiter([]byte{0}))
	conn := dialSink(t, svc)

	_, err := conn.Write(append([]byte(`{"level":"INFO","message":"nul"}`), 0))
	require.NoError(t, err)
	waitForRecords(t, svc, 1)
	assert.Equal(t, "nul", svc.Records().All()[0]["message"])
}

func TestSinkConnectDisconnect(t *testing.T) {
	svc := startSink(t)

	aliases, err := svc.Connect(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{svc.ContainerHost()}, aliases)
	require.NoError(t, svc.Disconnect(nil))
}
