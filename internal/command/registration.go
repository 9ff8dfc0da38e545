package command

import (
	"golang.org/x/crypto/bcrypt"

	"ircserv/internal/reply"
	"ircserv/internal/session"
)

// userParams is the number of arguments USER requires: username,
// hostname, servername and realname.
const userParams = 4

// handlePass authenticates the session.  Unless password verification is
// enabled the supplied value is accepted without being compared.
func (d *Dispatcher) handlePass(s *session.Session, args []string) *reply.Reply {
	if s.Authenticated() {
		return reply.AlreadyRegistered()
	}
	if len(args) == 0 {
		return reply.NeedMoreParams("PASS")
	}
	if d.verifyPassword {
		if err := bcrypt.CompareHashAndPassword(d.passwordHash, []byte(args[0])); err != nil {
			s.Logger.Verbose("PASS rejected")
			return reply.PasswordMismatch()
		}
	}

	s.SetAuthenticated()
	s.Logger.Verbose("PASS accepted")
	return nil
}

// handleNick sets the nickname.  Collisions with other sessions are only
// checked when unique nicknames are enforced.
func (d *Dispatcher) handleNick(s *session.Session, args []string) *reply.Reply {
	if len(args) == 0 {
		return reply.NoNicknameGiven()
	}
	nick := args[0]

	if d.uniqueNicknames && d.sessions != nil {
		if other, taken := d.sessions.FindByNickname(nick); taken && other != s {
			return reply.NicknameInUse(nick)
		}
	}

	s.SetNickname(nick)
	s.Logger.Verbose("NICK %s", nick)
	return nil
}

// handleUser records the username.  Hostname, servername and realname are
// accepted and discarded.
func (d *Dispatcher) handleUser(s *session.Session, args []string) *reply.Reply {
	if len(args) < userParams {
		return reply.NeedMoreParams("USER")
	}

	s.SetUsername(args[0])
	s.Logger.Verbose("USER %s", args[0])
	return nil
}
