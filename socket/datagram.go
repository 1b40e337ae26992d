package socket

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/libcat/cat/reactor"
)

// RecvFrom implements §4.3 `recv_from(buf, &addr)` for datagram
// sockets (UDP/UDG): returns bytes read plus the source address.
func (s *Socket) RecvFrom(buf []byte, timeout time.Duration) (int, *Addr, error) {
	caller := s.rt.Current()
	if err := s.lockRead(caller); err != nil {
		return 0, nil, err
	}
	defer s.unlockRead()

	fd := s.FD()
	for {
		n, sa, err := unix.Recvfrom(fd, buf, 0)
		if err == nil {
			return n, addrFromSockaddr(sa), nil
		}
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			return 0, nil, translateErrno("recvfrom", err)
		}
		if werr := s.awaitFD(caller, reactor.EventRead, timeout); werr != nil {
			return 0, nil, werr
		}
	}
}

// SendTo implements §4.3 `send_to(buf, addr)`: at most one datagram is
// sent per call.
func (s *Socket) SendTo(buf []byte, addr Addr, timeout time.Duration) error {
	caller := s.rt.Current()
	if err := s.lockWrite(caller); err != nil {
		return err
	}
	defer s.unlockWrite()

	if err := s.ensureFD(); err != nil {
		return err
	}
	sa, err := s.sockaddrOf(addr)
	if err != nil {
		return err
	}

	fd := s.FD()
	for {
		err := unix.Sendto(fd, buf, 0, sa)
		if err == nil {
			return nil
		}
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			return translateErrno("sendto", err)
		}
		if werr := s.awaitFD(caller, reactor.EventWrite, timeout); werr != nil {
			return werr
		}
	}
}
