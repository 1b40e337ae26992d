package socket

import (
	"golang.org/x/sys/unix"
)

// pageSize is used to implement "setting zero requests at least one
// page, at most two pages" for buffer-size tuning (§4.3).
const pageSize = 4096

// SetRecvBufferSize applies §4.3's "OS-rounded values" buffer tuning:
// requesting 0 asks the OS for something between one and two pages.
func (s *Socket) SetRecvBufferSize(n int) error {
	if n == 0 {
		n = pageSize + pageSize/2
	}
	fd := s.FD()
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, n); err != nil {
		return translateErrno("setsockopt(SO_RCVBUF)", err)
	}
	got, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF)
	if err != nil {
		return translateErrno("getsockopt(SO_RCVBUF)", err)
	}
	s.mu.Lock()
	s.recvBufSize = got
	s.mu.Unlock()
	return nil
}

// GetRecvBufferSize returns the OS-rounded receive buffer size.
func (s *Socket) GetRecvBufferSize() (int, error) {
	got, err := unix.GetsockoptInt(s.FD(), unix.SOL_SOCKET, unix.SO_RCVBUF)
	if err != nil {
		return 0, translateErrno("getsockopt(SO_RCVBUF)", err)
	}
	return got, nil
}

// SetSendBufferSize is SetRecvBufferSize's send-side counterpart.
func (s *Socket) SetSendBufferSize(n int) error {
	if n == 0 {
		n = pageSize + pageSize/2
	}
	fd := s.FD()
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, n); err != nil {
		return translateErrno("setsockopt(SO_SNDBUF)", err)
	}
	got, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF)
	if err != nil {
		return translateErrno("getsockopt(SO_SNDBUF)", err)
	}
	s.mu.Lock()
	s.sendBufSize = got
	s.mu.Unlock()
	return nil
}

// GetSendBufferSize returns the OS-rounded send buffer size.
func (s *Socket) GetSendBufferSize() (int, error) {
	got, err := unix.GetsockoptInt(s.FD(), unix.SOL_SOCKET, unix.SO_SNDBUF)
	if err != nil {
		return 0, translateErrno("getsockopt(SO_SNDBUF)", err)
	}
	return got, nil
}

// SetKeepAlive is a direct pass-through to SO_KEEPALIVE (§4.3).
func (s *Socket) SetKeepAlive(enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	if err := unix.SetsockoptInt(s.FD(), unix.SOL_SOCKET, unix.SO_KEEPALIVE, v); err != nil {
		return translateErrno("setsockopt(SO_KEEPALIVE)", err)
	}
	s.mu.Lock()
	s.keepalive = enabled
	s.mu.Unlock()
	return nil
}

// SetNoDelay is a direct pass-through to TCP_NODELAY (§4.3), valid only
// for TCP sockets.
func (s *Socket) SetNoDelay(enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	if err := unix.SetsockoptInt(s.FD(), unix.IPPROTO_TCP, unix.TCP_NODELAY, v); err != nil {
		return translateErrno("setsockopt(TCP_NODELAY)", err)
	}
	s.mu.Lock()
	s.nodelay = enabled
	s.mu.Unlock()
	return nil
}

// SetAcceptBalance enables SO_REUSEPORT-based load-balanced accept
// across multiple listener sockets bound to the same address — the
// "accept-balance" pass-through of §4.3.
func (s *Socket) SetAcceptBalance(enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	if err := unix.SetsockoptInt(s.FD(), unix.SOL_SOCKET, unix.SO_REUSEPORT, v); err != nil {
		return translateErrno("setsockopt(SO_REUSEPORT)", err)
	}
	return nil
}
