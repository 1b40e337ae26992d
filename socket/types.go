// Package socket implements §4.3's non-blocking socket engine: a
// synchronous-looking byte-stream/datagram API layered above
// coroutine.Runtime and reactor.Loop. Every blocking operation
// registers interest with the loop's poller, then suspends the calling
// coroutine via Runtime.Yield until a callback resumes it — the same
// handle/resume/cancel shape reactor's own §4.2 adapters use
// (reactor.Loop.Sleep, reactor.Loop.Resolve).
package socket

import (
	"sync"

	"github.com/libcat/cat/coroutine"
	"github.com/libcat/cat/reactor"
)

// SimpleType is the socket's fixed, creation-time kind (§4.3 "type
// algebra"). A socket's simple type never changes; rebinding to a new
// address family requires recreating the socket.
type SimpleType int

const (
	TCP SimpleType = iota
	UDP
	PIPE // AF_UNIX stream on POSIX
	UDG  // AF_UNIX datagram on POSIX
	TTY
)

func (t SimpleType) String() string {
	switch t {
	case TCP:
		return "tcp"
	case UDP:
		return "udp"
	case PIPE:
		return "pipe"
	case UDG:
		return "udg"
	case TTY:
		return "tty"
	default:
		return "unknown"
	}
}

// Family selects the IP address family for TCP/UDP sockets.
type Family int

const (
	FamilyUnspec Family = iota // "don't care" — resolved at bind/connect time
	FamilyIPv4
	FamilyIPv6
)

// Role is the socket's connection-establishment sub-state for stream
// types: whether it will accept() or connect().
type Role int

const (
	RoleNone Role = iota
	RoleServer
	RoleClient
)

// TTYDirection identifies which standard stream a TTY-typed socket
// wraps.
type TTYDirection int

const (
	TTYStdin TTYDirection = iota
	TTYStdout
	TTYStderr
)

// State is the socket's lifecycle position, per §4.3's invariants:
// open iff an OS fd is bound, established iff accepted/connected.
type State int

const (
	StateUnopen State = iota
	StateOpen
	StateServer
	StateEstablished
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopen:
		return "unopen"
	case StateOpen:
		return "open"
	case StateServer:
		return "server"
	case StateEstablished:
		return "established"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// BindFlags control bind's socket-option side effects (§4.3).
type BindFlags int

const (
	BindReuseAddr BindFlags = 1 << iota
	BindReusePort
	BindIPv6Only
)

// Addr is a cached or authoritative socket/peer address, generalizing
// over the several address shapes (IP:port, unix path) §4.3's types can
// carry.
type Addr struct {
	Network string // "tcp", "udp", "unix", "unixgram", "tty"
	Host    string
	Port    int
	Path    string // unix-domain path, when applicable
}

// Socket is one instance of §4.3's unified socket type, wrapping a
// single OS fd registered with a reactor.Loop and suspending coroutines
// on a coroutine.Runtime for every operation that may block.
type Socket struct {
	mu sync.Mutex

	typ    SimpleType
	family Family
	role   Role
	ttyDir TTYDirection

	fd    int
	state State

	rt   *coroutine.Runtime
	loop *reactor.Loop

	// readLock/writeLock enforce "at most one reader and one writer
	// coroutine active" (§4.3 invariants): a second concurrent reader or
	// writer observes ELOCKED rather than corrupting the stream.
	readLocked  bool
	readOwner   *coroutine.Coroutine
	writeLocked bool
	writeOwner  *coroutine.Coroutine

	localAddr  *Addr
	peerAddr   *Addr
	localCached bool
	peerCached  bool

	recvBufSize int
	sendBufSize int
	keepalive   bool
	nodelay     bool

	// cancelPending is the cancel func for whatever reactor registration
	// is currently backing a suspended operation on this socket, so
	// Close can unwind it with ECANCELED (§4.3 "cross-coroutine close").
	cancelPending func()
}

// Create allocates an unopened socket of the given type, bound to rt
// for suspension and loop for I/O readiness notification.
func Create(rt *coroutine.Runtime, loop *reactor.Loop, typ SimpleType) *Socket {
	return &Socket{
		typ:         typ,
		fd:          -1,
		state:       StateUnopen,
		rt:          rt,
		loop:        loop,
		recvBufSize: 0,
		sendBufSize: 0,
	}
}

// Type returns the socket's immutable simple type.
func (s *Socket) Type() SimpleType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typ
}

// State returns the socket's current lifecycle state.
func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FD returns the underlying OS file descriptor, or -1 if unopened.
func (s *Socket) FD() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fd
}
