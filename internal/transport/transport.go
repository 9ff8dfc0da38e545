// Package transport wraps the raw socket calls the event loop is built
// on.  Everything here works on plain descriptors so that a single
// goroutine can multiplex them with poll(2); nothing is handed to the Go
// runtime's network poller.
//
// All descriptors produced by this package are non-blocking.  Read and
// Write return the underlying errno wrapped in a NetworkError, so callers
// can classify EAGAIN with errors.IsWouldBlock.
package transport

import (
	"golang.org/x/sys/unix"

	ierrors "ircserv/internal/errors"
)

// Readable is the event mask the loop waits for on every descriptor.
const Readable = unix.POLLIN

// Poll waits without a timeout until at least one descriptor in fds is
// ready.  EINTR is not a failure of the primitive, so the wait is simply
// re-issued; any other error is returned.
func Poll(fds []unix.PollFd) (int, error) {
	for {
		n, err := unix.Poll(fds, -1)
		if err == nil {
			return n, nil
		}
		if ierrors.IsInterrupted(err) {
			continue
		}
		return 0, ierrors.Wrap("poll", "", err)
	}
}

// Ready reports whether revents means the descriptor needs a read step.
// Hang-up and error conditions count as readable so the read observes
// them and the descriptor gets retired instead of spinning.
func Ready(revents int16) bool {
	return revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0
}

// SetNonblock puts fd into non-blocking mode.
func SetNonblock(fd int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return ierrors.WrapFD("fcntl", fd, err)
	}
	return nil
}

// Read performs one read(2) on fd.  n is never negative.
func Read(fd int, p []byte) (int, error) {
	n, err := unix.Read(fd, p)
	if err != nil {
		return 0, ierrors.WrapFD("read", fd, err)
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

// Close closes fd.
func Close(fd int) error {
	if err := unix.Close(fd); err != nil {
		return ierrors.WrapFD("close", fd, err)
	}
	return nil
}

// Conn is a connected, non-blocking descriptor usable as an io.Writer.
type Conn int

// Write performs exactly one write(2).  A short write is reported as
// ErrShortWrite; nothing is retried.
func (c Conn) Write(p []byte) (int, error) {
	n, err := unix.Write(int(c), p)
	if err != nil {
		return 0, ierrors.WrapFD("write", int(c), err)
	}
	if n < len(p) {
		return n, ierrors.WrapFD("write", int(c), ierrors.ErrShortWrite)
	}
	return n, nil
}

// FD returns the descriptor number.
func (c Conn) FD() int { return int(c) }
