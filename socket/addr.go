package socket

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/libcat/cat/catcode"
)

// resolveIP resolves host to a single IP matching family, preferring
// whichever family the caller pinned and falling back to "don't care"
// (first result) otherwise. A literal IP is returned as is; any other
// host is looked up with net.LookupIP, which blocks the calling
// goroutine. Connect resolves through this helper, not through
// reactor.Loop.Resolve.
func resolveIP(host string, family Family) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, catcode.Wrap(err, catcode.EAINONAME, "resolve "+host)
	}
	for _, ip := range ips {
		is4 := ip.To4() != nil
		if family == FamilyIPv4 && is4 {
			return ip, nil
		}
		if family == FamilyIPv6 && !is4 {
			return ip, nil
		}
	}
	if len(ips) == 0 {
		return nil, catcode.New(catcode.EAINONAME, "no addresses for "+host)
	}
	return ips[0], nil
}

func addrFromSockaddr(sa unix.Sockaddr) *Addr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &Addr{Network: "tcp", Host: net.IP(v.Addr[:]).String(), Port: v.Port}
	case *unix.SockaddrInet6:
		return &Addr{Network: "tcp", Host: net.IP(v.Addr[:]).String(), Port: v.Port}
	case *unix.SockaddrUnix:
		return &Addr{Network: "unix", Path: v.Name}
	default:
		return nil
	}
}

// LocalAddr returns the cached local address, populating it on first
// use (§4.3 "getname / peername"). Invalidated by Bind.
func (s *Socket) LocalAddr() (*Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.localCached {
		return s.localAddr, nil
	}
	return s.refreshLocalAddrLocked()
}

// LocalAddrFresh bypasses the cache for an authoritative lookup.
func (s *Socket) LocalAddrFresh() (*Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocalAddrLocked()
}

func (s *Socket) refreshLocalAddrLocked() (*Addr, error) {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return nil, translateErrno("getsockname", err)
	}
	s.localAddr = addrFromSockaddr(sa)
	s.localCached = true
	return s.localAddr, nil
}

// PeerAddr returns the cached peer address, populating it on first use.
func (s *Socket) PeerAddr() (*Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peerCached {
		return s.peerAddr, nil
	}
	return s.refreshPeerAddrLocked()
}

// PeerAddrFresh bypasses the cache for an authoritative lookup.
func (s *Socket) PeerAddrFresh() (*Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshPeerAddrLocked()
}

func (s *Socket) refreshPeerAddrLocked() (*Addr, error) {
	sa, err := unix.Getpeername(s.fd)
	if err != nil {
		return nil, translateErrno("getpeername", err)
	}
	s.peerAddr = addrFromSockaddr(sa)
	s.peerCached = true
	return s.peerAddr, nil
}
