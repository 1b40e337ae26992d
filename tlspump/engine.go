package tlspump

import (
	"context"
	"crypto/tls"
	"io"
	"sync"
	"time"

	"github.com/libcat/cat/catcode"
	"github.com/libcat/cat/socket"
)

// Phase is the engine's accept/connect/handshaked state (§4.4 "three
// disjoint states").
type Phase int

const (
	PhaseFresh Phase = iota
	PhaseAccept
	PhaseConnect
	PhaseHandshaked
)

// Engine is a TLS record pump wrapping a socket.Socket: it owns the
// same inbound/outbound byte-buffering crypto/tls.Conn already
// performs against any net.Conn, so Encrypt/Decrypt are just
// tls.Conn.Write/Read over the socketConn adapter — every suspension
// point still routes through the wrapped Socket's coroutine-yielding
// Read/Write.
type Engine struct {
	mu    sync.Mutex
	sock  *socket.Socket
	raw   *socketConn
	conn  *tls.Conn
	phase Phase

	serverConfig *tls.Config
	clientConfig *tls.Config
	serverName   string

	lastErr error
}

// New creates a fresh (unconfigured) engine over sock.
func New(sock *socket.Socket) *Engine {
	return &Engine{sock: sock, raw: newSocketConn(sock)}
}

// SetAccept puts the engine into server (accept) state using config.
// Per §4.4, switching accept↔connect before handshake is allowed and
// clears any conflicting prior option.
func (e *Engine) SetAccept(config *tls.Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseHandshaked {
		return catcode.New(catcode.EMISUSE, "cannot switch TLS state after handshake")
	}
	e.serverConfig = config
	e.clientConfig = nil
	e.conn = nil
	e.phase = PhaseAccept
	return nil
}

// SetConnect puts the engine into client (connect) state.
func (e *Engine) SetConnect(config *tls.Config, serverName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseHandshaked {
		return catcode.New(catcode.EMISUSE, "cannot switch TLS state after handshake")
	}
	cfg := config
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" && serverName != "" {
		cfg = cfg.Clone()
		cfg.ServerName = serverName
	}
	e.clientConfig = cfg
	e.serverConfig = nil
	e.serverName = serverName
	e.phase = PhaseConnect
	return nil
}

// Phase returns the engine's current handshake phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Handshake drives the TLS handshake to completion (§4.4 "handshake()"):
// want-read/want-write retries are transparently handled by tls.Conn
// itself reading/writing through socketConn, which suspends the
// calling coroutine on the underlying socket exactly like any other
// blocking §4.3 operation. Every handshake failure is returned as an
// ESSL error; a peer closing mid-handshake shows up there as the
// net.ErrClosed that socketConn reports for a zero-byte read.
func (e *Engine) Handshake(ctx context.Context) error {
	e.mu.Lock()
	phase := e.phase
	if e.conn == nil {
		switch phase {
		case PhaseAccept:
			e.conn = tls.Server(e.raw, e.serverConfig)
		case PhaseConnect:
			e.conn = tls.Client(e.raw, e.clientConfig)
		default:
			e.mu.Unlock()
			return catcode.New(catcode.EMISUSE, "call SetAccept or SetConnect before Handshake")
		}
	}
	conn := e.conn
	e.mu.Unlock()

	if err := conn.HandshakeContext(ctx); err != nil {
		return e.recordErr(err)
	}

	e.mu.Lock()
	e.phase = PhaseHandshaked
	e.mu.Unlock()
	return nil
}

// Read decrypts wire bytes into buf (§4.4 "decrypt"): SSL_read from the
// inbound BIO, pulling more ciphertext from the socket (suspending) as
// needed — here, a direct tls.Conn.Read over socketConn.
func (e *Engine) Read(buf []byte, timeout time.Duration) (int, error) {
	e.mu.Lock()
	conn := e.conn
	e.raw.readDeadline = deadlineFrom(timeout)
	e.mu.Unlock()
	if conn == nil {
		return 0, catcode.New(catcode.EMISUSE, "Handshake must complete before Read")
	}
	n, err := conn.Read(buf)
	if err != nil {
		return n, e.recordErr(err)
	}
	return n, nil
}

// Write encrypts user bytes onto the wire (§4.4 "encrypt"): SSL_write
// into the outbound BIO, flushed to the socket by tls.Conn itself.
func (e *Engine) Write(buf []byte, timeout time.Duration) (int, error) {
	e.mu.Lock()
	conn := e.conn
	e.raw.writeDeadline = deadlineFrom(timeout)
	e.mu.Unlock()
	if conn == nil {
		return 0, catcode.New(catcode.EMISUSE, "Handshake must complete before Write")
	}
	n, err := conn.Write(buf)
	if err != nil {
		return n, e.recordErr(err)
	}
	return n, nil
}

// Close shuts down the TLS session (sending close_notify when possible)
// and closes the underlying socket.
func (e *Engine) Close() error {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
		return nil
	}
	return e.sock.Close()
}

// LastError returns the most recently recorded TLS error, concatenating
// the failure's message the way §4.4's "drained and concatenated error
// stack" is surfaced to callers.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) recordErr(err error) error {
	if err == io.EOF {
		wrapped := catcode.Wrap(err, catcode.ESSL, "TLS connection closed (zero_return)")
		e.mu.Lock()
		e.lastErr = wrapped
		e.mu.Unlock()
		return wrapped
	}
	wrapped := catcode.Wrap(err, catcode.ESSL, "TLS error")
	e.mu.Lock()
	e.lastErr = wrapped
	e.mu.Unlock()
	return wrapped
}

func deadlineFrom(timeout time.Duration) time.Time {
	if timeout < 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}
