package sink

import "errors"

// Standard error variables for the sink service. Callers should match
// with errors.Is since returned errors carry wrapped detail.
var (
	// ErrBind indicates the requested listen port was unavailable at
	// construction.
	ErrBind = errors.New("failed to bind listen port")

	// ErrAlreadyStarted is returned by Start on a service whose
	// reactor is already running.
	ErrAlreadyStarted = errors.New("service already started")

	// ErrStopped is returned by Start on a stopped service. Stopped is
	// terminal; construct a fresh instance instead.
	ErrStopped = errors.New("service already stopped")

	// ErrDecode indicates a malformed frame (invalid UTF-8, invalid
	// JSON, or a non-object top-level value). Fatal to the connection
	// it arrived on, never to the service.
	ErrDecode = errors.New("malformed frame")

	// ErrStopTimeout is returned by Stop when the reactor fails to
	// exit within the stop timeout. This is fatal and never retried:
	// it means the reactor is stuck.
	ErrStopTimeout = errors.New("reactor did not exit within stop timeout")
)
