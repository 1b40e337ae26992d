package socket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/libcat/cat/catcode"
	"github.com/libcat/cat/coroutine"
	"github.com/libcat/cat/reactor"
)

// newTestRuntime wires a coroutine.Runtime to a reactor.Loop the same
// way a real program does: a scheduler coroutine whose body repeatedly
// drives one reactor pass and yields, driven by WaitAll from main.
func newTestRuntime(t *testing.T) (*coroutine.Runtime, *reactor.Loop) {
	t.Helper()
	loop, err := reactor.New()
	require.NoError(t, err)

	rt := coroutine.New()
	sched := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		ctx := context.Background()
		for {
			_ = loop.EventWait(ctx)
			rt.Yield(nil)
		}
	})
	require.NoError(t, rt.RegisterScheduler(sched))

	return rt, loop
}

func TestTCPEchoRoundTrip(t *testing.T) {
	rt, loop := newTestRuntime(t)

	server := Create(rt, loop, TCP)
	require.NoError(t, server.Bind(Addr{Host: "127.0.0.1", Port: 0}, BindReuseAddr))
	require.NoError(t, server.Listen(128))

	local, err := server.LocalAddr()
	require.NoError(t, err)
	port := local.Port

	var serverErr, clientErr error
	var echoed string

	serverCo := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		conn, err := server.Accept(nil, -1)
		if err != nil {
			serverErr = err
			return nil
		}
		buf := make([]byte, 64)
		n, err := conn.Read(buf, -1)
		if err != nil {
			serverErr = err
			return nil
		}
		_, err = conn.Write(buf[:n], -1)
		serverErr = err
		return nil
	})

	clientCo := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		client := Create(rt, loop, TCP)
		if err := client.Connect(Addr{Host: "127.0.0.1", Port: port}, 2*time.Second); err != nil {
			clientErr = err
			return nil
		}
		if _, err := client.Write([]byte("ping"), -1); err != nil {
			clientErr = err
			return nil
		}
		buf := make([]byte, 64)
		n, err := client.Read(buf, 2*time.Second)
		if err != nil {
			clientErr = err
			return nil
		}
		echoed = string(buf[:n])
		return nil
	})

	_, err = rt.Resume(serverCo, nil)
	require.NoError(t, err)
	_, err = rt.Resume(clientCo, nil)
	require.NoError(t, err)

	require.NoError(t, rt.WaitAll())
	require.NoError(t, serverErr)
	require.NoError(t, clientErr)
	require.Equal(t, "ping", echoed)
}

func TestConnectRefused(t *testing.T) {
	rt, loop := newTestRuntime(t)

	probe, err := reactor.New() // throwaway second loop; the connect below targets port 1
	require.NoError(t, err)
	defer func() { _ = probe.Close() }()

	var connectErr error
	co := rt.Create(func(c *coroutine.Coroutine, arg any) any {
		client := Create(rt, loop, TCP)
		connectErr = client.Connect(Addr{Host: "127.0.0.1", Port: 1}, 2*time.Second)
		return nil
	})

	_, err = rt.Resume(co, nil)
	require.NoError(t, err)
	require.NoError(t, rt.WaitAll())

	require.Error(t, connectErr)
}

func TestReadLockedBySecondReader(t *testing.T) {
	rt, loop := newTestRuntime(t)
	s := Create(rt, loop, TCP)

	first := rt.Create(func(co *coroutine.Coroutine, arg any) any { return nil })
	second := rt.Create(func(co *coroutine.Coroutine, arg any) any { return nil })

	require.NoError(t, s.lockRead(first))
	err := s.lockRead(second)
	require.True(t, catcode.Is(err, catcode.ELOCKED))

	s.unlockRead()
	require.NoError(t, s.lockRead(second))
}

func TestCloseCancelsPendingOperation(t *testing.T) {
	rt, loop := newTestRuntime(t)

	server := Create(rt, loop, TCP)
	require.NoError(t, server.Bind(Addr{Host: "127.0.0.1", Port: 0}, BindReuseAddr))
	require.NoError(t, server.Listen(128))

	var acceptErr error
	acceptor := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		_, acceptErr = server.Accept(nil, -1)
		return nil
	})

	_, err := rt.Resume(acceptor, nil)
	require.NoError(t, err)
	require.Equal(t, coroutine.Waiting, acceptor.State())

	require.NoError(t, server.Close())
	require.NoError(t, rt.WaitAll())

	require.True(t, catcode.Is(acceptErr, catcode.ECANCELED))
}

func TestCheckLivenessOnUnopenedSocket(t *testing.T) {
	rt, loop := newTestRuntime(t)
	s := Create(rt, loop, TCP)
	require.False(t, s.CheckLiveness())
}
