package socket

import (
	"sync"
	"time"

	"github.com/libcat/cat/catcode"
	"github.com/libcat/cat/coroutine"
	"github.com/libcat/cat/reactor"
)

// awaitFD suspends caller until fd becomes ready for events, timeout
// elapses, or the socket is closed from another coroutine — the three
// races every "may suspend" operation in §4.3 must resolve. Grounded on
// reactor/adapters.go's Sleep (allocate a handle, register with the
// loop, let the coroutine model yield) generalized to race an fd
// registration against a timer, with a third cancellation path wired
// through Socket.cancelPending for cross-coroutine close.
func (s *Socket) awaitFD(caller *coroutine.Coroutine, events reactor.IOEvents, timeout time.Duration) error {
	var once sync.Once
	settle := func(err error) {
		once.Do(func() {
			_, _ = s.rt.Resume(caller, err)
		})
	}

	fd := s.FD()
	if err := s.loop.RegisterFD(fd, events, func(reactor.IOEvents) {
		_ = s.loop.UnregisterFD(fd)
		settle(nil)
	}); err != nil {
		return translateErrno("register", err)
	}

	var cancelTimer func()
	if timeout >= 0 {
		_, _, cancelTimer = s.loop.Sleep(timeout, func(err error) {
			if err != nil {
				return // canceled by the fd branch firing first
			}
			_ = s.loop.UnregisterFD(fd)
			settle(catcode.New(catcode.ETIMEDOUT, "socket operation timed out"))
		})
	}

	s.mu.Lock()
	s.cancelPending = func() {
		_ = s.loop.UnregisterFD(fd)
		if cancelTimer != nil {
			cancelTimer()
		}
		settle(catcode.New(catcode.ECANCELED, "socket closed while operation pending"))
	}
	s.mu.Unlock()

	result := s.rt.Yield(nil)

	s.mu.Lock()
	s.cancelPending = nil
	s.mu.Unlock()

	if cancelTimer != nil {
		cancelTimer()
	}

	if result == nil {
		return nil
	}
	return result.(error)
}

// lockRead claims the single-reader slot for caller, or reports ELOCKED
// if another coroutine already holds it (§4.3 invariant: at most one
// reader and one writer active per socket).
func (s *Socket) lockRead(caller *coroutine.Coroutine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readLocked && s.readOwner != caller {
		return catcode.New(catcode.ELOCKED, "another coroutine is already reading this socket")
	}
	s.readLocked = true
	s.readOwner = caller
	return nil
}

func (s *Socket) unlockRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readLocked = false
	s.readOwner = nil
}

// lockWrite is lockRead's write-side counterpart.
func (s *Socket) lockWrite(caller *coroutine.Coroutine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeLocked && s.writeOwner != caller {
		return catcode.New(catcode.ELOCKED, "another coroutine is already writing this socket")
	}
	s.writeLocked = true
	s.writeOwner = caller
	return nil
}

func (s *Socket) unlockWrite() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeLocked = false
	s.writeOwner = nil
}
