// Package reply builds numeric replies and writes them to sessions.
//
// The wire shape is "<code> <params...> :<text>" followed by CR LF.
package reply

import "strings"

// Numeric codes.
const (
	RplWelcome          = "001"
	ErrUnknownCommand   = "421"
	ErrNoNicknameGiven  = "421" // shares 421 with ErrUnknownCommand
	ErrNicknameInUse    = "433"
	ErrNeedMoreParams   = "461"
	ErrAlreadyRegistred = "462"
	ErrPasswdMismatch   = "464"
)

// Reply is one numeric reply.
type Reply struct {
	Code   string
	Params []string
	Text   string
}

// String renders the reply without its line terminator.
func (r Reply) String() string {
	var b strings.Builder
	b.WriteString(r.Code)
	for _, p := range r.Params {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	b.WriteString(" :")
	b.WriteString(r.Text)
	return b.String()
}

// Welcome is RPL_WELCOME.
func Welcome(nick, user, host string) *Reply {
	return &Reply{
		Code:   RplWelcome,
		Params: []string{nick},
		Text:   "Welcome to the Internet Relay Chat Network " + nick + "!" + user + "@" + host,
	}
}

// UnknownCommand is ERR_UNKNOWNCOMMAND, echoing verb as received.
func UnknownCommand(verb string) *Reply {
	return &Reply{Code: ErrUnknownCommand, Params: []string{verb}, Text: "Unknown command"}
}

// NoNicknameGiven is ERR_NONICKNAMEGIVEN.
func NoNicknameGiven() *Reply {
	return &Reply{Code: ErrNoNicknameGiven, Text: "No nickname given"}
}

// NicknameInUse is ERR_NICKNAMEINUSE.
func NicknameInUse(nick string) *Reply {
	return &Reply{Code: ErrNicknameInUse, Params: []string{"*", nick}, Text: "Nickname is already in use"}
}

// NeedMoreParams is ERR_NEEDMOREPARAMS for verb.
func NeedMoreParams(verb string) *Reply {
	return &Reply{Code: ErrNeedMoreParams, Params: []string{verb}, Text: "Not enough parameters"}
}

// AlreadyRegistered is ERR_ALREADYREGISTRED.
func AlreadyRegistered() *Reply {
	return &Reply{Code: ErrAlreadyRegistred, Text: "Unauthorized command (already registered)"}
}

// PasswordMismatch is ERR_PASSWDMISMATCH.
func PasswordMismatch() *Reply {
	return &Reply{Code: ErrPasswdMismatch, Text: "Password incorrect"}
}
