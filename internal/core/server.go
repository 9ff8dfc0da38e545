// Package core is the event loop.  A single goroutine multiplexes the
// listening socket and every client descriptor with poll(2), accepts new
// peers, frames their input into lines and hands complete lines to the
// command dispatcher.
//
// Architecture layers (bottom → top):
//
//	transport  →  session  →  reply / command  →  core  →  cmd (CLI)
//
// Failures on one connection are isolated: the offending session is
// removed and the loop carries on.  Only a failing poll primitive ends
// the loop.
package core

import (
	"fmt"

	"ircserv/internal/command"
	ierrors "ircserv/internal/errors"
	"ircserv/internal/metrics"
	"ircserv/internal/reply"
	"ircserv/internal/session"
	"ircserv/internal/transport"
	"ircserv/util"
)

// Options configures a Server.
type Options struct {
	BindHost       string
	Port           int // 0 picks an ephemeral port
	Backlog        int
	ReadBufferSize int
	MaxLineLength  int // 0 means unbounded
	Policy         command.Policy
}

// Server owns the listener, the session registry and the dispatcher.  It
// is not safe for concurrent use; Step and Run must be called from one
// goroutine.
type Server struct {
	opts       Options
	listener   *transport.Listener
	registry   *Registry
	dispatcher *command.Dispatcher
	logger     *util.Logger
	metrics    *metrics.Collector

	buf []byte
}

// NewServer binds the listening socket and wires the dispatcher.  Any
// error is a fatal setup failure and leaves nothing open.
func NewServer(opts Options, logger *util.Logger, m *metrics.Collector) (*Server, error) {
	ln, err := transport.Listen(opts.BindHost, opts.Port, opts.Backlog)
	if err != nil {
		return nil, err
	}

	reg := NewRegistry(ln.FD(), m, logger)
	d, err := command.New(opts.Policy, reg, &reply.Emitter{Metrics: m}, m)
	if err != nil {
		ln.Close() //nolint:errcheck
		return nil, fmt.Errorf("password policy: %w", err)
	}

	return &Server{
		opts:       opts,
		listener:   ln,
		registry:   reg,
		dispatcher: d,
		logger:     logger,
		metrics:    m,
		buf:        make([]byte, opts.ReadBufferSize),
	}, nil
}

// Port returns the port the listener is bound to.
func (s *Server) Port() int { return s.listener.Port() }

// Registry exposes the live sessions.
func (s *Server) Registry() *Registry { return s.registry }

// Dispatcher returns the command dispatcher, for registering extra verbs.
func (s *Server) Dispatcher() *command.Dispatcher { return s.dispatcher }

// Run executes Step forever.  It returns only when the poll primitive
// fails.
func (s *Server) Run() error {
	s.logger.Info("listening on %s", util.FormatAddr(s.opts.BindHost, s.Port()))
	for {
		if err := s.Step(); err != nil {
			return err
		}
	}
}

// Step performs one iteration of the loop: wait until some descriptor is
// ready, accept at most one pending connection if the listener is ready,
// then read once from every session that was ready, in poll set order.
// Sessions accepted during this iteration are not read until the next.
func (s *Server) Step() error {
	fds := s.registry.pollSet()
	if _, err := transport.Poll(fds); err != nil {
		return fmt.Errorf("%w: %w", ierrors.ErrPollFailed, err)
	}

	listenerReady := transport.Ready(fds[0].Revents)

	var ready []int
	for _, p := range fds[1:] {
		if transport.Ready(p.Revents) {
			ready = append(ready, int(p.Fd))
		}
	}

	if listenerReady {
		s.accept()
	}

	for _, fd := range ready {
		// Re-resolve by descriptor: an earlier step in this iteration may
		// already have retired it.
		if sess, ok := s.registry.Get(fd); ok {
			s.read(sess)
		}
	}
	return nil
}

// Close releases every session and the listener.
func (s *Server) Close() error {
	s.registry.CloseAll()
	return s.listener.Close()
}

func (s *Server) accept() {
	fd, remote, err := s.listener.Accept()
	if err != nil {
		if ierrors.IsTemporary(err) {
			return
		}
		s.metrics.RecordError("accept")
		s.logger.Warn("%v", err)
		return
	}

	if err := transport.SetNonblock(fd); err != nil {
		s.metrics.RecordError("fcntl")
		s.logger.Warn("%v", err)
		transport.Close(fd) //nolint:errcheck
		return
	}

	sess := session.New(fd, remote, transport.Conn(fd), s.logger)
	if !s.registry.Add(sess) {
		s.logger.Error("descriptor %d is already registered", fd)
		transport.Close(fd) //nolint:errcheck
		return
	}
	sess.Logger.Info("accepted connection from %s", remote)
}

func (s *Server) read(sess *session.Session) {
	n, err := transport.Read(sess.FD, s.buf)
	switch {
	case err != nil && ierrors.IsTemporary(err):
		return
	case err != nil:
		s.metrics.RecordError("read")
		sess.Logger.Warn("%v", err)
		s.registry.Remove(sess.FD)
		return
	case n == 0:
		sess.Logger.Verbose("peer closed the connection")
		s.registry.Remove(sess.FD)
		return
	}

	s.metrics.BytesReceived(n)
	in := sess.Inbound()
	in.Append(s.buf[:n])

	for {
		line, ok := in.Next()
		if !ok {
			break
		}
		if line == "" {
			continue
		}
		sess.Logger.Debug("C: %s", line)
		s.dispatcher.Dispatch(sess, line)
	}

	if limit := s.opts.MaxLineLength; limit > 0 && in.Len() > limit {
		s.metrics.RecordError("overflow")
		sess.Logger.Warn("%v: %d bytes without a line terminator", ierrors.ErrLineTooLong, in.Len())
		s.registry.Remove(sess.FD)
	}
}
