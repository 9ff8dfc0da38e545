// Package session holds the server's state for one connected peer: its
// descriptor, the inbound byte accumulator and the registration fields
// set by PASS, NICK and USER.
//
// A Session never references the registry or other sessions.  Code that
// needs to reach another peer looks it up by descriptor or nickname.
package session

import (
	"fmt"
	"io"
	"time"

	"ircserv/util"
)

// Session encapsulates the runtime state for a single connection.
type Session struct {
	FD         int       // connection descriptor, unique among live sessions
	RemoteAddr string    // peer address, for logs
	Accepted   time.Time // when the connection was registered

	// Out receives replies.  In production it is the descriptor itself.
	Out    io.Writer
	Logger *util.Logger // scoped to "fd=N"

	inbound Framer

	nickname      string
	nicknameSet   bool
	username      string
	usernameSet   bool
	authenticated bool
}

// New creates a Session with an empty accumulator and default
// (unauthenticated, no nickname, no username) registration state.
func New(fd int, remoteAddr string, out io.Writer, logger *util.Logger) *Session {
	return &Session{
		FD:         fd,
		RemoteAddr: remoteAddr,
		Accepted:   time.Now(),
		Out:        out,
		Logger:     logger.With(fmt.Sprintf("fd=%d", fd)),
	}
}

// Inbound returns the session's accumulator.
func (s *Session) Inbound() *Framer { return &s.inbound }

// Nickname returns the nickname and whether one has been set.
func (s *Session) Nickname() (string, bool) { return s.nickname, s.nicknameSet }

// SetNickname records nick as the session's nickname.
func (s *Session) SetNickname(nick string) {
	s.nickname = nick
	s.nicknameSet = true
}

// Username returns the username and whether one has been set.
func (s *Session) Username() (string, bool) { return s.username, s.usernameSet }

// SetUsername records user as the session's username.
func (s *Session) SetUsername(user string) {
	s.username = user
	s.usernameSet = true
}

// Authenticated reports whether PASS has succeeded.
func (s *Session) Authenticated() bool { return s.authenticated }

// SetAuthenticated marks the session as having passed PASS.
func (s *Session) SetAuthenticated() { s.authenticated = true }

// Registered reports whether password, nickname and username have all
// been supplied.  Nothing is gated on it; it only feeds logs and metrics.
func (s *Session) Registered() bool {
	return s.authenticated && s.nicknameSet && s.usernameSet
}
