// Package tlspump implements §4.4's TLS record pump: encryption and
// decryption layered above the socket engine without changing its
// read/write contract. Go's crypto/tls already performs the BIO-pair
// style buffering (inbound ciphertext decrypted on demand, outbound
// ciphertext flushed to the wire) internally against any net.Conn, so
// the pump's job is to present socket.Socket as a net.Conn — preserving
// the coroutine-suspension discipline through every Read/Write/wait —
// and to drive tls.Conn's handshake/accept/connect state machine the
// way §4.4 describes it.
package tlspump

import (
	"net"
	"strconv"
	"time"

	"github.com/libcat/cat/socket"
)

// socketConn adapts a coroutine-suspending socket.Socket to the
// blocking net.Conn shape crypto/tls.Conn expects, translating
// SetReadDeadline/SetWriteDeadline into the per-call timeouts
// socket.Socket's Read/Write already take.
type socketConn struct {
	sock          *socket.Socket
	readDeadline  time.Time
	writeDeadline time.Time
}

func newSocketConn(sock *socket.Socket) *socketConn {
	return &socketConn{sock: sock}
}

func (c *socketConn) Read(b []byte) (int, error) {
	n, err := c.sock.Read(b, timeoutUntil(c.readDeadline))
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, net.ErrClosed
	}
	return n, nil
}

func (c *socketConn) Write(b []byte) (int, error) {
	return c.sock.Write(b, timeoutUntil(c.writeDeadline))
}

func (c *socketConn) Close() error {
	return c.sock.Close()
}

func (c *socketConn) LocalAddr() net.Addr {
	a, err := c.sock.LocalAddr()
	if err != nil {
		return nil
	}
	return tlsAddr{a}
}

func (c *socketConn) RemoteAddr() net.Addr {
	a, err := c.sock.PeerAddr()
	if err != nil {
		return nil
	}
	return tlsAddr{a}
}

func (c *socketConn) SetDeadline(t time.Time) error {
	c.readDeadline = t
	c.writeDeadline = t
	return nil
}

func (c *socketConn) SetReadDeadline(t time.Time) error {
	c.readDeadline = t
	return nil
}

func (c *socketConn) SetWriteDeadline(t time.Time) error {
	c.writeDeadline = t
	return nil
}

// timeoutUntil converts an absolute deadline into the relative timeout
// socket.Socket's operations expect: a zero deadline means "block
// forever" (-1), matching §4.3's timeout<0 convention.
func timeoutUntil(deadline time.Time) time.Duration {
	if deadline.IsZero() {
		return -1
	}
	d := time.Until(deadline)
	if d < 0 {
		return 0
	}
	return d
}

type tlsAddr struct {
	addr *socket.Addr
}

func (a tlsAddr) Network() string { return a.addr.Network }
func (a tlsAddr) String() string {
	if a.addr.Path != "" {
		return a.addr.Path
	}
	return net.JoinHostPort(a.addr.Host, strconv.Itoa(a.addr.Port))
}
