package tlspump

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/libcat/cat/coroutine"
	"github.com/libcat/cat/reactor"
	"github.com/libcat/cat/socket"
)

func selfSignedConfig(t *testing.T) *tls.Config {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
	return &tls.Config{Certificates: []tls.Certificate{cert}}
}

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

func TestHandshakeAndRoundTrip(t *testing.T) {
	rt, loop := newTestRuntime(t)
	serverTLSConfig := selfSignedConfig(t)

	server := socket.Create(rt, loop, socket.TCP)
	require.NoError(t, server.Bind(socket.Addr{Host: "127.0.0.1", Port: 0}, socket.BindReuseAddr))
	require.NoError(t, server.Listen(128))
	local, err := server.LocalAddr()
	require.NoError(t, err)

	var serverErr, clientErr error
	var received string

	serverCo := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		conn, err := server.Accept(nil, -1)
		if err != nil {
			serverErr = err
			return nil
		}
		engine := New(conn)
		if err := engine.SetAccept(serverTLSConfig); err != nil {
			serverErr = err
			return nil
		}
		if err := engine.Handshake(context.Background()); err != nil {
			serverErr = err
			return nil
		}
		buf := make([]byte, 64)
		n, err := engine.Read(buf, -1)
		if err != nil {
			serverErr = err
			return nil
		}
		_, err = engine.Write(buf[:n], -1)
		serverErr = err
		return nil
	})

	clientCo := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		client := socket.Create(rt, loop, socket.TCP)
		if err := client.Connect(*local, 2*time.Second); err != nil {
			clientErr = err
			return nil
		}
		engine := New(client)
		clientTLSConfig := &tls.Config{InsecureSkipVerify: true}
		if err := engine.SetConnect(clientTLSConfig, "localhost"); err != nil {
			clientErr = err
			return nil
		}
		if err := engine.Handshake(context.Background()); err != nil {
			clientErr = err
			return nil
		}
		if _, err := engine.Write([]byte("ping"), -1); err != nil {
			clientErr = err
			return nil
		}
		buf := make([]byte, 64)
		n, err := engine.Read(buf, 2*time.Second)
		if err != nil {
			clientErr = err
			return nil
		}
		received = string(buf[:n])
		require.Equal(t, PhaseHandshaked, engine.Phase())
		return nil
	})

	_, err = rt.Resume(serverCo, nil)
	require.NoError(t, err)
	_, err = rt.Resume(clientCo, nil)
	require.NoError(t, err)
	require.NoError(t, rt.WaitAll())

	require.NoError(t, serverErr)
	require.NoError(t, clientErr)
	require.Equal(t, "ping", received)
}

func TestSwitchStateBeforeHandshakeAllowed(t *testing.T) {
	rt, loop := newTestRuntime(t)
	sock := socket.Create(rt, loop, socket.TCP)
	engine := New(sock)

	require.NoError(t, engine.SetAccept(&tls.Config{}))
	require.Equal(t, PhaseAccept, engine.Phase())

	require.NoError(t, engine.SetConnect(&tls.Config{}, "example.com"))
	require.Equal(t, PhaseConnect, engine.Phase())
}

func TestReadBeforeHandshakeIsMisuse(t *testing.T) {
	rt, loop := newTestRuntime(t)
	sock := socket.Create(rt, loop, socket.TCP)
	engine := New(sock)
	_, err := engine.Read(make([]byte, 8), -1)
	require.Error(t, err)
}
