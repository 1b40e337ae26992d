package socket

import (
	"golang.org/x/sys/unix"

	"github.com/libcat/cat/catcode"
)

// Open adopts an already-open external fd of a matching type (§4.3
// `open(fd)`), skipping socket() creation — used for inherited fds
// (e.g. a TTY's stdin/stdout/stderr).
func (s *Socket) Open(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateUnopen {
		return catcode.New(catcode.EINVAL, "socket is already open")
	}
	if fd < 0 {
		return catcode.New(catcode.EBADF, "invalid external fd")
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return translateErrno("open", err)
	}
	s.fd = fd
	s.state = StateOpen
	return nil
}

// domainSockType returns the (domain, type, proto) triad for the
// socket's simple type and family, per §3's type-algebra mapping.
func (s *Socket) domainSockType() (domain, sotype, proto int, err error) {
	switch s.typ {
	case TCP:
		sotype = unix.SOCK_STREAM
		if s.family == FamilyIPv6 {
			domain = unix.AF_INET6
		} else {
			domain = unix.AF_INET
		}
		proto = unix.IPPROTO_TCP
	case UDP:
		sotype = unix.SOCK_DGRAM
		if s.family == FamilyIPv6 {
			domain = unix.AF_INET6
		} else {
			domain = unix.AF_INET
		}
		proto = unix.IPPROTO_UDP
	case PIPE:
		domain = unix.AF_UNIX
		sotype = unix.SOCK_STREAM
	case UDG:
		domain = unix.AF_UNIX
		sotype = unix.SOCK_DGRAM
	default:
		return 0, 0, 0, catcode.New(catcode.ENOTSUP, "simple type has no socket(2) equivalent")
	}
	return domain, sotype, proto, nil
}

// ensureFD lazily creates the OS socket the first time an address
// operation (bind/connect) needs one.
func (s *Socket) ensureFD() error {
	if s.fd >= 0 {
		return nil
	}
	domain, sotype, proto, err := s.domainSockType()
	if err != nil {
		return err
	}
	fd, err := unix.Socket(domain, sotype|unix.SOCK_NONBLOCK, proto)
	if err != nil {
		return translateErrno("socket", err)
	}
	s.fd = fd
	return nil
}

// sockaddrOf converts an Addr to the unix.Sockaddr the socket's domain
// expects.
func (s *Socket) sockaddrOf(addr Addr) (unix.Sockaddr, error) {
	switch s.typ {
	case TCP, UDP:
		ip, err := resolveIP(addr.Host, s.family)
		if err != nil {
			return nil, err
		}
		if s.family == FamilyIPv6 || len(ip) == 16 {
			var sa unix.SockaddrInet6
			copy(sa.Addr[:], ip.To16())
			sa.Port = addr.Port
			return &sa, nil
		}
		var sa unix.SockaddrInet4
		copy(sa.Addr[:], ip.To4())
		sa.Port = addr.Port
		return &sa, nil
	case PIPE, UDG:
		return &unix.SockaddrUnix{Name: addr.Path}, nil
	default:
		return nil, catcode.New(catcode.ENOTSUP, "simple type has no sockaddr equivalent")
	}
}

// Bind opens the socket against addr (§4.3 `bind`), applying flags as
// socket options before binding.
func (s *Socket) Bind(addr Addr, flags BindFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUnopen && s.state != StateOpen {
		return catcode.New(catcode.EINVAL, "socket cannot be rebound once established")
	}
	if err := s.ensureFD(); err != nil {
		return err
	}

	if flags&BindReuseAddr != 0 {
		_ = unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}
	if flags&BindReusePort != 0 {
		_ = unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	}
	if flags&BindIPv6Only != 0 && s.family == FamilyIPv6 {
		_ = unix.SetsockoptInt(s.fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 1)
	}

	sa, err := s.sockaddrOf(addr)
	if err != nil {
		return err
	}
	if err := unix.Bind(s.fd, sa); err != nil {
		return translateErrno("bind", err)
	}

	s.state = StateOpen
	s.localCached = false
	return nil
}

// Listen transitions a bound socket to server role (§4.3 `listen`).
func (s *Socket) Listen(backlog int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return catcode.New(catcode.EINVAL, "socket must be bound before listen")
	}
	if err := unix.Listen(s.fd, backlog); err != nil {
		return translateErrno("listen", err)
	}
	s.role = RoleServer
	s.state = StateServer
	return nil
}

// Close implements §4.3's `close`: any coroutine suspended in this
// socket's connect/read/accept wakes with ECANCELED (not EBADF), then
// the fd is unregistered and released.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancelPending
	fd := s.fd
	s.state = StateClosed
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if fd >= 0 {
		_ = s.loop.UnregisterFD(fd)
		if err := unix.Close(fd); err != nil {
			return translateErrno("close", err)
		}
	}
	return nil
}
