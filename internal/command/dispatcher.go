// Package command turns complete command lines into handler calls.
//
// Handlers are plain closures registered under a verb.  Each receives the
// originating session and the parsed arguments and returns at most one
// reply; a nil reply means nothing is sent.  Handlers never fail: bad input
// is answered with a numeric reply and the session's state is left as it
// was.
package command

import (
	"golang.org/x/crypto/bcrypt"

	"ircserv/internal/metrics"
	"ircserv/internal/reply"
	"ircserv/internal/session"
)

// HandlerFunc handles one verb.
type HandlerFunc func(s *session.Session, args []string) *reply.Reply

// Directory finds live sessions by nickname.
type Directory interface {
	FindByNickname(nick string) (*session.Session, bool)
}

// Policy holds the optional registration checks.  The zero value accepts
// any password and any nickname.
type Policy struct {
	Password        string // the server's configured secret
	VerifyPassword  bool   // compare PASS arguments against Password
	UniqueNicknames bool   // reject nicknames held by another session
}

// Dispatcher routes parsed lines to handlers through a static verb table.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	emitter  *reply.Emitter
	metrics  *metrics.Collector
	sessions Directory

	verifyPassword  bool
	passwordHash    []byte
	uniqueNicknames bool
}

// New builds a dispatcher with the PASS, NICK and USER handlers
// registered.  dir is consulted only when policy.UniqueNicknames is set.
func New(policy Policy, dir Directory, emitter *reply.Emitter, m *metrics.Collector) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers:        make(map[string]HandlerFunc),
		emitter:         emitter,
		metrics:         m,
		sessions:        dir,
		verifyPassword:  policy.VerifyPassword,
		uniqueNicknames: policy.UniqueNicknames,
	}

	if policy.VerifyPassword {
		// PASS runs on the event loop, so the comparison uses the cheapest
		// cost bcrypt allows.
		hash, err := bcrypt.GenerateFromPassword([]byte(policy.Password), bcrypt.MinCost)
		if err != nil {
			return nil, err
		}
		d.passwordHash = hash
	}

	d.Handle("PASS", d.handlePass)
	d.Handle("NICK", d.handleNick)
	d.Handle("USER", d.handleUser)
	return d, nil
}

// Handle registers h for verb, replacing any previous handler.  Verbs are
// matched exactly, so "nick" is not "NICK".
func (d *Dispatcher) Handle(verb string, h HandlerFunc) {
	d.handlers[verb] = h
}

// Dispatch parses line and runs its handler against s.  Lines without a
// verb are ignored.  An unknown verb is answered with ERR_UNKNOWNCOMMAND
// echoing the verb as received, to s only.
func (d *Dispatcher) Dispatch(s *session.Session, line string) {
	msg, ok := Parse(line)
	if !ok {
		return
	}

	h, known := d.handlers[msg.Verb]
	if !known {
		d.metrics.CommandDispatched(metrics.UnknownVerb)
		d.emitter.Emit(s, reply.UnknownCommand(msg.Verb))
		return
	}

	d.metrics.CommandDispatched(msg.Verb)
	wasRegistered := s.Registered()

	if r := h(s, msg.Args); r != nil {
		d.emitter.Emit(s, r)
	}

	if !wasRegistered && s.Registered() {
		d.metrics.Registered()
		nick, _ := s.Nickname()
		user, _ := s.Username()
		s.Logger.Info("registration complete: %s!%s", nick, user)
	}
}
