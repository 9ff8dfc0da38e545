package core

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ircserv/config"
	"ircserv/internal/command"
	"ircserv/internal/metrics"
	"ircserv/internal/reply"
	"ircserv/internal/session"
	"ircserv/internal/transport"
	"ircserv/util"
)

func newTestServer(t *testing.T, mutate func(*Options)) *Server {
	t.Helper()
	opts := Options{
		BindHost:       "127.0.0.1",
		Backlog:        config.DefaultBacklog,
		ReadBufferSize: config.DefaultReadBufferSize,
	}
	if mutate != nil {
		mutate(&opts)
	}
	srv, err := NewServer(opts, util.NewLogger(0), metrics.New())
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

// step runs one loop iteration, failing the test if nothing becomes
// ready in time.
func step(t *testing.T, srv *Server) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- srv.Step() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Step did not return")
	}
}

type client struct {
	net.Conn
	r *bufio.Reader
}

// connect dials srv and runs the iteration that accepts the connection.
func connect(t *testing.T, srv *Server) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "127.0.0.1:"+strconv.Itoa(srv.Port()), 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	before := srv.Registry().Len()
	step(t, srv)
	require.Equal(t, before+1, srv.Registry().Len(), "connection should be registered")
	return &client{Conn: conn, r: bufio.NewReader(conn)}
}

func (c *client) send(t *testing.T, data string) {
	t.Helper()
	_, err := c.Write([]byte(data))
	require.NoError(t, err)
}

func (c *client) readLine(t *testing.T) string {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	line, err := c.r.ReadString('\n')
	require.NoError(t, err)
	return line
}

func lastSession(srv *Server) int {
	all := srv.Registry().Sessions()
	return all[len(all)-1].FD
}

func TestServer_AcceptRegistersDefaultSession(t *testing.T) {
	srv := newTestServer(t, nil)
	connect(t, srv)

	sess := srv.Registry().Sessions()[0]
	assert.False(t, sess.Authenticated())
	_, nickSet := sess.Nickname()
	_, userSet := sess.Username()
	assert.False(t, nickSet)
	assert.False(t, userSet)
	assert.Zero(t, sess.Inbound().Len())
	assert.Equal(t, []int32{int32(srv.listener.FD()), int32(sess.FD)}, pollOrder(srv.Registry()))
}

func TestServer_Registration(t *testing.T) {
	srv := newTestServer(t, nil)
	c := connect(t, srv)

	c.send(t, "PASS secret\r\nNICK alice\r\nUSER al 0 * :Alice L\r\n")
	step(t, srv)

	sess, ok := srv.Registry().Get(lastSession(srv))
	require.True(t, ok)
	assert.True(t, sess.Registered())
	nick, _ := sess.Nickname()
	user, _ := sess.Username()
	assert.Equal(t, "alice", nick)
	assert.Equal(t, "al", user)
}

func TestServer_PartialLineAcrossReads(t *testing.T) {
	srv := newTestServer(t, nil)
	c := connect(t, srv)
	fd := lastSession(srv)

	c.send(t, "NICK al")
	step(t, srv)

	sess, _ := srv.Registry().Get(fd)
	_, set := sess.Nickname()
	assert.False(t, set, "no dispatch without a terminator")
	assert.Equal(t, "NICK al", string(sess.Inbound().Pending()))

	c.send(t, "ice\r\n")
	step(t, srv)

	nick, set := sess.Nickname()
	assert.True(t, set)
	assert.Equal(t, "alice", nick)
	assert.Zero(t, sess.Inbound().Len())
}

func TestServer_UnknownCommandReply(t *testing.T) {
	srv := newTestServer(t, nil)
	c := connect(t, srv)

	c.send(t, "FOO :hello world\r\n")
	step(t, srv)

	assert.Equal(t, "421 FOO :Unknown command\r\n", c.readLine(t))
}

func TestServer_RepliesInOrder(t *testing.T) {
	srv := newTestServer(t, nil)
	c := connect(t, srv)

	c.send(t, "NICK\r\n\r\nPASS\r\nUSER a\r\n")
	step(t, srv)

	assert.Equal(t, "421 :No nickname given\r\n", c.readLine(t))
	assert.Equal(t, "461 PASS :Not enough parameters\r\n", c.readLine(t))
	assert.Equal(t, "461 USER :Not enough parameters\r\n", c.readLine(t))
}

func TestServer_RepliesGoOnlyToSender(t *testing.T) {
	srv := newTestServer(t, nil)
	a := connect(t, srv)
	b := connect(t, srv)

	a.send(t, "BOGUS\r\n")
	step(t, srv)

	assert.Equal(t, "421 BOGUS :Unknown command\r\n", a.readLine(t))

	b.SetReadDeadline(time.Now().Add(100 * time.Millisecond)) //nolint:errcheck
	_, err := b.r.ReadByte()
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout(), "other sessions receive nothing")
}

func TestServer_DisconnectCleanup(t *testing.T) {
	srv := newTestServer(t, nil)

	var closed []int
	srv.registry.closeFD = func(fd int) error {
		closed = append(closed, fd)
		return transport.Close(fd)
	}

	connect(t, srv)
	fdA := lastSession(srv)
	b := connect(t, srv)
	fdB := lastSession(srv)
	connect(t, srv)
	fdC := lastSession(srv)

	require.NoError(t, b.Close())
	step(t, srv)

	assert.Equal(t, 2, srv.Registry().Len())
	_, ok := srv.Registry().Get(fdB)
	assert.False(t, ok)
	assert.Equal(t, []int{fdB}, closed, "descriptor closed exactly once")
	assert.Equal(t, []int32{int32(srv.listener.FD()), int32(fdA), int32(fdC)}, pollOrder(srv.Registry()))
}

func TestServer_AcceptAndReadInOneIteration(t *testing.T) {
	srv := newTestServer(t, nil)
	a := connect(t, srv)
	fdA := lastSession(srv)

	a.send(t, "NICK alice\r\n")
	late, err := net.DialTimeout("tcp", "127.0.0.1:"+strconv.Itoa(srv.Port()), 2*time.Second)
	require.NoError(t, err)
	defer late.Close()
	time.Sleep(50 * time.Millisecond)

	step(t, srv)

	assert.Equal(t, 2, srv.Registry().Len())
	sess, _ := srv.Registry().Get(fdA)
	nick, _ := sess.Nickname()
	assert.Equal(t, "alice", nick)
}

func TestServer_NewSessionNotReadInAcceptingIteration(t *testing.T) {
	srv := newTestServer(t, nil)

	conn, err := net.DialTimeout("tcp", "127.0.0.1:"+strconv.Itoa(srv.Port()), 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("NICK early\r\n"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	step(t, srv)
	sess, _ := srv.Registry().Get(lastSession(srv))
	_, set := sess.Nickname()
	assert.False(t, set)

	step(t, srv)
	nick, _ := sess.Nickname()
	assert.Equal(t, "early", nick)
}

func TestServer_LineLimit(t *testing.T) {
	srv := newTestServer(t, func(o *Options) { o.MaxLineLength = 8 })
	c := connect(t, srv)

	c.send(t, "NICK bob\r\nNICKNAMEXXXXXXX")
	step(t, srv)

	assert.Zero(t, srv.Registry().Len(), "session over the limit is dropped")

	c.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	rest, err := io.ReadAll(c.r)
	require.NoError(t, err)
	assert.Empty(t, rest)

	n, err := testutil.GatherAndCount(srv.metrics.Registry(), "ircserv_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestServer_UniqueNicknames(t *testing.T) {
	srv := newTestServer(t, func(o *Options) {
		o.Policy = command.Policy{UniqueNicknames: true}
	})
	a := connect(t, srv)
	b := connect(t, srv)

	a.send(t, "NICK alice\r\n")
	step(t, srv)
	b.send(t, "NICK ALICE\r\n")
	step(t, srv)

	assert.Equal(t, "433 * ALICE :Nickname is already in use\r\n", b.readLine(t))
}

func TestServer_VerifyPassword(t *testing.T) {
	srv := newTestServer(t, func(o *Options) {
		o.Policy = command.Policy{Password: "hunter2", VerifyPassword: true}
	})
	c := connect(t, srv)

	c.send(t, "PASS nope\r\n")
	step(t, srv)
	assert.Equal(t, "464 :Password incorrect\r\n", c.readLine(t))

	c.send(t, "PASS hunter2\r\nPASS again\r\n")
	step(t, srv)
	assert.Equal(t, "462 :Unauthorized command (already registered)\r\n", c.readLine(t))
}

func TestServer_ExtraVerb(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.Dispatcher().Handle("PING", func(_ *session.Session, args []string) *reply.Reply {
		return &reply.Reply{Code: "PONG", Text: args[0]}
	})
	c := connect(t, srv)

	c.send(t, "PING :irc.example.net\r\nping x\r\n")
	step(t, srv)

	if got := c.readLine(t); got != "PONG :irc.example.net\r\n" {
		t.Errorf("first reply = %q", got)
	}
	if got := c.readLine(t); got != "421 ping :Unknown command\r\n" {
		t.Errorf("second reply = %q", got)
	}
}

func TestNewServer_BindFailure(t *testing.T) {
	first := newTestServer(t, nil)

	_, err := NewServer(Options{
		BindHost:       "127.0.0.1",
		Port:           first.Port(),
		Backlog:        1,
		ReadBufferSize: 16,
	}, util.NewLogger(0), nil)
	assert.Error(t, err)
}

func TestBuild_FromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.BindHost = "127.0.0.1"
	cfg.Port = 0
	cfg.Password = "pw"
	cfg.UniqueNicknames = true

	opts := optionsFromConfig(cfg)
	assert.Equal(t, "127.0.0.1", opts.BindHost)
	assert.Equal(t, cfg.Backlog, opts.Backlog)
	assert.Equal(t, "pw", opts.Policy.Password)
	assert.True(t, opts.Policy.UniqueNicknames)
	assert.False(t, opts.Policy.VerifyPassword)

	srv, err := Build(cfg, util.NewLogger(0), nil)
	require.NoError(t, err)
	defer srv.Close()
	assert.NotZero(t, srv.Port())
}
