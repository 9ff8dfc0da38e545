package command

import "strings"

// trailingMarker introduces the last argument, which may contain spaces.
const trailingMarker = " :"

// Message is one parsed command line.
type Message struct {
	Verb string   // first token, as received
	Args []string // middle tokens followed by the trailing argument, if any
}

// Parse splits a line (terminator already stripped) into verb and
// arguments.  Everything after the first " :" is a single trailing
// argument; the text before it is split on runs of whitespace.  ok is
// false when there is no verb token, in which case nothing should be
// dispatched, even if a trailing argument was present.
func Parse(line string) (msg Message, ok bool) {
	var (
		trailing    string
		hasTrailing bool
	)
	if i := strings.Index(line, trailingMarker); i >= 0 {
		trailing = line[i+len(trailingMarker):]
		hasTrailing = true
		line = line[:i]
	}

	tokens := strings.FieldsFunc(line, isSpace)
	if len(tokens) == 0 {
		return Message{}, false
	}

	args := make([]string, 0, len(tokens))
	args = append(args, tokens[1:]...)
	if hasTrailing {
		args = append(args, trailing)
	}
	return Message{Verb: tokens[0], Args: args}, true
}

// isSpace matches the C locale's isspace set.
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
