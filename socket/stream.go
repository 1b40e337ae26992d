package socket

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/libcat/cat/catcode"
	"github.com/libcat/cat/reactor"
)

// Accept implements §4.3 `accept(into?, timeout)`: the socket must be
// listening; suspends the calling coroutine (rt.Current()) until a
// pending connection exists or timeout elapses. If into is non-nil it
// is populated in place (so callers can reuse a pooled Socket);
// otherwise a new Socket is returned.
func (s *Socket) Accept(into *Socket, timeout time.Duration) (*Socket, error) {
	caller := s.rt.Current()

	s.mu.Lock()
	if s.state != StateServer {
		s.mu.Unlock()
		return nil, catcode.New(catcode.EINVAL, "socket must be listening to accept")
	}
	fd := s.fd
	s.mu.Unlock()

	for {
		nfd, _, err := unix.Accept4(fd, unix.SOCK_NONBLOCK)
		if err == nil {
			conn := into
			if conn == nil {
				conn = Create(s.rt, s.loop, s.typ)
			}
			conn.mu.Lock()
			conn.fd = nfd
			conn.family = s.family
			conn.role = RoleServer
			conn.state = StateEstablished
			conn.mu.Unlock()
			return conn, nil
		}
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			return nil, translateErrno("accept", err)
		}
		if werr := s.awaitFD(caller, reactor.EventRead, timeout); werr != nil {
			return nil, werr
		}
	}
}

// Connect implements §4.3 `connect(host[:port], timeout)`: performs a
// nonblocking connect(2), suspending the calling coroutine on
// writability, then reads SO_ERROR to distinguish success from a
// deferred connection failure.
func (s *Socket) Connect(addr Addr, timeout time.Duration) error {
	caller := s.rt.Current()

	s.mu.Lock()
	if s.state != StateUnopen && s.state != StateOpen {
		s.mu.Unlock()
		return catcode.New(catcode.EINVAL, "socket is already established")
	}
	if err := s.ensureFD(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.role = RoleClient
	fd := s.fd
	s.mu.Unlock()

	sa, err := s.sockaddrOf(addr)
	if err != nil {
		return err
	}

	err = unix.Connect(fd, sa)
	if err != nil && err != unix.EINPROGRESS {
		return translateErrno("connect", err)
	}
	if err == unix.EINPROGRESS {
		if werr := s.awaitFD(caller, reactor.EventWrite, timeout); werr != nil {
			return werr
		}
		errno, gerr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if gerr != nil {
			return translateErrno("getsockopt", gerr)
		}
		if errno != 0 {
			return translateErrno("connect", unix.Errno(errno))
		}
	}

	s.mu.Lock()
	s.state = StateEstablished
	s.peerCached = false
	s.mu.Unlock()
	return nil
}

// Read implements §4.3 `read(buf)`/`recv(buf)`: returns bytes read
// (0 means peer shutdown for a stream), retrying on EAGAIN by
// suspending the calling coroutine on readability.
func (s *Socket) Read(buf []byte, timeout time.Duration) (int, error) {
	caller := s.rt.Current()
	if err := s.lockRead(caller); err != nil {
		return 0, err
	}
	defer s.unlockRead()

	fd := s.FD()
	for {
		n, err := unix.Read(fd, buf)
		if err == nil {
			return n, nil
		}
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			return 0, translateErrno("read", err)
		}
		if werr := s.awaitFD(caller, reactor.EventRead, timeout); werr != nil {
			return 0, werr
		}
	}
}

// Write implements §4.3 `write(buf)`/`send(buf)` for stream sockets:
// all-or-error — every byte in buf is written before Write returns,
// looping through partial writes and EAGAIN suspensions.
func (s *Socket) Write(buf []byte, timeout time.Duration) (int, error) {
	caller := s.rt.Current()
	if err := s.lockWrite(caller); err != nil {
		return 0, err
	}
	defer s.unlockWrite()

	fd := s.FD()
	total := 0
	for total < len(buf) {
		n, err := unix.Write(fd, buf[total:])
		if err == nil {
			total += n
			continue
		}
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			return total, translateErrno("write", err)
		}
		if werr := s.awaitFD(caller, reactor.EventWrite, timeout); werr != nil {
			return total, werr
		}
	}
	return total, nil
}

// CheckLiveness implements §4.3 `check_liveness()`: a non-suspending
// boolean probe via SO_ERROR, matching the "does not suspend" contract.
func (s *Socket) CheckLiveness() bool {
	fd := s.FD()
	if fd < 0 {
		return false
	}
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	return err == nil && errno == 0
}
