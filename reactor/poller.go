// Package reactor's I/O registration is how socket.wait's awaitFD
// suspends a coroutine until a file descriptor becomes readable or
// writable: it calls Loop.RegisterFD with a callback that resumes the
// waiting coroutine, using whichever platform-native readiness
// mechanism this build was compiled for:
//   - Linux: epoll
//   - Darwin/BSD: kqueue
//
// See poller_linux.go and poller_darwin.go for the platform-specific
// implementations this file dispatches to.
//
// Usage (from an adapter, not typically called directly by coroutine
// code):
//
//	loop.RegisterFD(fd, EventRead, func(events IOEvents) {
//	    rt.Resume(waitingCoroutine, nil)
//	})
//
// Safety: always call UnregisterFD before closing a file descriptor,
// to prevent stale event delivery after the OS recycles the fd number
// to an unrelated socket.
package reactor

// Note: RegisterFD, UnregisterFD, ModifyFD, and PollIO are implemented
// in platform-specific files:
//   - poller_linux.go (epoll)
//   - poller_darwin.go (kqueue)
