package util

import (
	"fmt"
	"net"
	"strconv"
)

// ParseBindIPv4 validates a listen address.  An empty host means every
// interface.  Hostnames are rejected: the listener binds numerically and
// never resolves names.
func ParseBindIPv4(host string) (net.IP, error) {
	if host == "" {
		return net.IPv4zero.To4(), nil
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("cannot parse %q as an IP address", host)
	}
	v4 := ip.To4()
	if v4 == nil {
		return nil, fmt.Errorf("%q is not an IPv4 address", host)
	}
	return v4, nil
}

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// FindFreePort returns an available TCP port on 127.0.0.1.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
