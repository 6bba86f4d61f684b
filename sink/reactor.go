package sink

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
)

// connection is the per-socket state owned by the reactor. It is
// created on accept and destroyed on peer close, decode failure or
// service stop. Nothing touches it concurrently: the reader goroutine
// only hands raw chunks to the reactor, which alone drives the
// decoder.
type connection struct {
	id   string
	conn net.Conn
	dec  *frameDecoder
}

// readEvent is one read result forwarded to the reactor. data may be
// non-empty even when err is set; it is always serviced first.
type readEvent struct {
	conn *connection
	data []byte
	err  error
}

// acceptLoop blocks in Accept and forwards new sockets to the reactor.
// Exits when the listener closes.
func (s *Service) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		select {
		case s.accepted <- conn:
		case <-s.done:
			conn.Close()
			return
		}
	}
}

// readLoop reads fixed-size chunks from one socket and forwards them
// to the reactor in order. One reader per connection and a single
// shared channel give strict per-connection ordering with arbitrary
// interleaving across connections.
func (s *Service) readLoop(c *connection) {
	buf := make([]byte, s.chunkSize)
	for {
		n, err := c.conn.Read(buf)
		var data []byte
		if n > 0 {
			data = append([]byte(nil), buf[:n]...)
		}
		select {
		case s.events <- readEvent{conn: c, data: data, err: err}:
		case <-s.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// run is the reactor: the single goroutine multiplexing the acceptor,
// the shutdown coordinator and every open connection. It is the only
// writer to the record store. On exit it closes the listener and every
// registered connection.
func (s *Service) run(ctx context.Context) {
	conns := make(map[*connection]struct{})
	defer close(s.done)
	defer func() {
		s.listener.Close()
		for c := range conns {
			c.conn.Close()
		}
	}()

	// The ticker only bounds the idle wait so the loop wakes
	// periodically even with no traffic.
	ticker := time.NewTicker(s.wakeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ctx.Done():
			return
		case nc := <-s.accepted:
			c := &connection{
				id:   uuid.NewString(),
				conn: nc,
				dec:  newFrameDecoder(s.delim),
			}
			conns[c] = struct{}{}
			s.logger.Debug("connection accepted",
				"conn", c.id, "remote", nc.RemoteAddr().String())
			go s.readLoop(c)
		case ev := <-s.events:
			if _, registered := conns[ev.conn]; !registered {
				// Stale event from a connection closed earlier
				// in this run.
				continue
			}
			s.serviceConn(conns, ev)
		case <-ticker.C:
		}
	}
}

// serviceConn handles one read event. A failure here, including an
// unexpected panic, closes and deregisters only this connection, never
// the loop.
func (s *Service) serviceConn(conns map[*connection]struct{}, ev readEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("unexpected error servicing connection, closing it",
				"conn", ev.conn.id, "panic", r)
			s.deregister(conns, ev.conn)
		}
	}()

	if len(ev.data) > 0 {
		if err := ev.conn.dec.consume(ev.data, s.records.append); err != nil {
			s.logger.Error("failed decoding frame, closing connection",
				"conn", ev.conn.id, "error", err)
			s.deregister(conns, ev.conn)
			return
		}
	}
	if ev.err != nil {
		if !errors.Is(ev.err, io.EOF) {
			s.logger.Debug("read failed, closing connection",
				"conn", ev.conn.id, "error", ev.err)
		} else {
			s.logger.Debug("connection closed by peer", "conn", ev.conn.id)
		}
		s.deregister(conns, ev.conn)
	}
}

func (s *Service) deregister(conns map[*connection]struct{}, c *connection) {
	delete(conns, c)
	c.conn.Close()
}
