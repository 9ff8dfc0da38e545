package transport

import (
	"net"
	"strconv"

	"golang.org/x/sys/unix"

	ierrors "ircserv/internal/errors"
	"ircserv/util"
)

// Listener is a non-blocking IPv4 TCP listening socket.
type Listener struct {
	fd   int
	addr string
}

// Listen creates, configures, binds and listens on host:port.  Every step
// is a fatal setup failure; the partially built socket is closed before
// the error is returned.  Port 0 picks an ephemeral port, see
// [Listener.Port].
func Listen(host string, port, backlog int) (*Listener, error) {
	addr := util.FormatAddr(host, port)

	ip, err := util.ParseBindIPv4(host)
	if err != nil {
		return nil, ierrors.Wrap("resolve", addr, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, ierrors.Wrap("socket", addr, err)
	}
	unix.CloseOnExec(fd)

	fail := func(op string, err error) (*Listener, error) {
		unix.Close(fd) //nolint:errcheck
		return nil, ierrors.Wrap(op, addr, err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setsockopt", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return fail("fcntl", err)
	}

	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip)
	if err := unix.Bind(fd, sa); err != nil {
		return fail("bind", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return fail("listen", err)
	}

	return &Listener{fd: fd, addr: addr}, nil
}

// FD returns the listening descriptor.
func (l *Listener) FD() int { return l.fd }

// Port returns the bound port, which differs from the requested one when
// Listen was called with port 0.
func (l *Listener) Port() int {
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return 0
	}
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		return in4.Port
	}
	return 0
}

// Accept takes one pending connection.  The new descriptor is blocking;
// the caller decides whether it can be switched to non-blocking mode.
func (l *Listener) Accept() (int, string, error) {
	fd, sa, err := unix.Accept(l.fd)
	if err != nil {
		return -1, "", ierrors.Wrap("accept", l.addr, err)
	}
	unix.CloseOnExec(fd)
	return fd, sockaddrString(sa), nil
}

// Close closes the listening descriptor.
func (l *Listener) Close() error {
	return Close(l.fd)
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrUnix:
		return "unix:" + a.Name
	default:
		return "unknown"
	}
}
