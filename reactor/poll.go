package reactor

// PollFD is one file descriptor entry for the Poll adapter, mirroring
// POSIX struct pollfd.
type PollFD struct {
	FD     int
	Events IOEvents
}

// Poll implements §4.2's "poll (POSIX poll over fd sets)" adapter on
// top of the existing epoll/kqueue-backed poller: each fd is registered
// for the requested events, and resume fires with the first fd (and its
// ready events) to become ready. Unlike socket fds (which stay
// registered for the socket's lifetime), Poll's registrations are
// transient — UnregisterFD is called as soon as one fd fires or the
// handle is canceled.
func (l *Loop) Poll(fds []PollFD, resume func(ready PollFD, err error)) (handleID uint64, handle *opHandle, cancel func()) {
	handleID, handle = l.registry.NewOpHandle(func(error) {})

	unregisterAll := func() {
		for _, pfd := range fds {
			_ = l.UnregisterFD(pfd.FD)
		}
	}

	fire := func(pfd PollFD, events IOEvents, err error) {
		if handle.State() != Pending {
			return
		}
		handle.Complete(err)
		unregisterAll()
		resume(PollFD{FD: pfd.FD, Events: events}, err)
	}

	for _, pfd := range fds {
		pfd := pfd
		if err := l.RegisterFD(pfd.FD, pfd.Events, func(events IOEvents) {
			fire(pfd, events, nil)
		}); err != nil {
			unregisterAll()
			handle.Complete(err)
			resume(PollFD{}, err)
			return handleID, handle, func() {}
		}
	}

	return handleID, handle, func() {
		unregisterAll()
		handle.Cancel(ErrAdapterCanceled)
	}
}
