package core

import (
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"ircserv/internal/metrics"
	"ircserv/internal/session"
	"ircserv/internal/transport"
	"ircserv/util"
)

// Registry owns every live session together with the poll set the event
// loop waits on.  Slot 0 of the poll set is always the listener; slots
// 1..n follow session registration order.  The poll set and the session
// table always describe the same descriptors.
type Registry struct {
	pollfds  []unix.PollFd
	sessions map[int]*session.Session

	metrics *metrics.Collector
	logger  *util.Logger

	closeFD func(fd int) error
}

// NewRegistry returns a registry whose poll set holds only listenFD.
func NewRegistry(listenFD int, m *metrics.Collector, logger *util.Logger) *Registry {
	return &Registry{
		pollfds:  []unix.PollFd{{Fd: int32(listenFD), Events: transport.Readable}},
		sessions: make(map[int]*session.Session),
		metrics:  m,
		logger:   logger,
		closeFD:  transport.Close,
	}
}

// Add registers s and appends its descriptor to the poll set.  It returns
// false, changing nothing, if the descriptor is already registered.
func (r *Registry) Add(s *session.Session) bool {
	if _, dup := r.sessions[s.FD]; dup {
		return false
	}
	r.sessions[s.FD] = s
	r.pollfds = append(r.pollfds, unix.PollFd{Fd: int32(s.FD), Events: transport.Readable})
	r.metrics.ConnectionOpened()
	return true
}

// Remove drops the session for fd from both the table and the poll set,
// keeping the order of the remaining entries, and closes the descriptor.
// Removing an unknown descriptor is a no-op, so a descriptor is closed at
// most once.
func (r *Registry) Remove(fd int) bool {
	s, ok := r.sessions[fd]
	if !ok {
		return false
	}
	delete(r.sessions, fd)

	for i := 1; i < len(r.pollfds); i++ {
		if int(r.pollfds[i].Fd) == fd {
			r.pollfds = append(r.pollfds[:i], r.pollfds[i+1:]...)
			break
		}
	}

	if err := r.closeFD(fd); err != nil {
		r.logger.Warn("%v", err)
	}
	r.metrics.ConnectionClosed(time.Since(s.Accepted))
	s.Logger.Info("connection closed")
	return true
}

// Get returns the session registered for fd.
func (r *Registry) Get(fd int) (*session.Session, bool) {
	s, ok := r.sessions[fd]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int { return len(r.sessions) }

// Sessions returns the live sessions in registration order.
func (r *Registry) Sessions() []*session.Session {
	out := make([]*session.Session, 0, len(r.sessions))
	for _, p := range r.pollfds[1:] {
		out = append(out, r.sessions[int(p.Fd)])
	}
	return out
}

// FindByNickname returns the first session, in registration order, whose
// nickname matches nick.  Nicknames compare case-insensitively.
func (r *Registry) FindByNickname(nick string) (*session.Session, bool) {
	for _, p := range r.pollfds[1:] {
		s := r.sessions[int(p.Fd)]
		if n, ok := s.Nickname(); ok && strings.EqualFold(n, nick) {
			return s, true
		}
	}
	return nil, false
}

// CloseAll removes every session.
func (r *Registry) CloseAll() {
	for _, s := range r.Sessions() {
		r.Remove(s.FD)
	}
}

// pollSet returns the slice handed to poll(2).  It is invalidated by the
// next Add or Remove.
func (r *Registry) pollSet() []unix.PollFd { return r.pollfds }
