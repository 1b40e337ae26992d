package reactor

import (
	"context"
	"net"
)

// Resolve performs a DNS lookup for host and resumes the waiting
// coroutine with the resolved addresses, matching §4.3's "connect may
// perform DNS first". Grounded on net.Resolver: it already yields the
// calling goroutine the same way the coroutine model requires blocking
// operations to, so no third-party resolver earns a place here (see
// DESIGN.md — the corpus's only DNS-capable example pulls in an
// unrelated composition framework rather than a reusable resolver).
//
// The lookup runs through Work's WorkFastIO pool rather than an
// unbounded ad-hoc goroutine: a resolver under load (many coroutines
// connecting to many hostnames at once) is exactly the "I/O expected
// to complete quickly, but plentiful" case WorkFastIO's
// larger-than-WorkCPU pool sizing exists for.
func (l *Loop) Resolve(ctx context.Context, host string, resume func([]net.IPAddr, error)) (handleID uint64, handle *opHandle, cancel func()) {
	return l.Work(ctx, WorkFastIO, func() (any, error) {
		var resolver net.Resolver
		return resolver.LookupIPAddr(ctx, host)
	}, func(value any, err error) {
		addrs, _ := value.([]net.IPAddr)
		resume(addrs, err)
	})
}
