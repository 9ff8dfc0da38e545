// Package errors provides domain-specific error types for ircserv.
//
// The types carry structured context (operation, address) so the entry
// point can print a useful diagnostic, and the classification helpers let
// the event loop tell a descriptor that merely has nothing to do apart from
// one that has failed.
package errors

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrUsage       = errors.New("usage: ircserv [flags] <port> <password>")
	ErrInvalidPort = errors.New("invalid port number")
	ErrPollFailed  = errors.New("poll failed")
	ErrLineTooLong = errors.New("line exceeds maximum length")
	ErrShortWrite  = errors.New("short write")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a socket operation.
type NetworkError struct {
	Op   string // "socket", "setsockopt", "bind", "listen", "accept", "read", "write", "poll"
	Addr string // address or "fd=N" the operation concerned
	Err  error  // underlying error
}

func (e *NetworkError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: %s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err}
}

// WrapFD creates a NetworkError addressed by descriptor.
func WrapFD(op string, fd int, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: fmt.Sprintf("fd=%d", fd), Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsWouldBlock reports whether err means a non-blocking operation could
// not complete right now.  The loop treats that as "nothing happened".
func IsWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// IsInterrupted reports whether err is EINTR.
func IsInterrupted(err error) bool {
	return errors.Is(err, unix.EINTR)
}

// IsTemporary reports whether err represents a condition that leaves the
// descriptor usable: would-block or an interrupted call.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	return IsWouldBlock(err) || IsInterrupted(err)
}
