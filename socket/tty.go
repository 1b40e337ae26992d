package socket

import (
	"github.com/libcat/cat/catcode"
	"github.com/libcat/cat/coroutine"
	"github.com/libcat/cat/reactor"
	"github.com/libcat/cat/term"
)

// OpenTTY wraps an inherited stdin/stdout/stderr fd as a TTY-typed
// socket (§3 "for TTY, stdin/stdout/stderr direction"), putting it into
// raw mode via term.SetRaw — generalized from term's prompt-reader use
// (raw mode while reading keystrokes) to the socket engine's uniform
// read/write contract.
func OpenTTY(rt *coroutine.Runtime, loop *reactor.Loop, dir TTYDirection, fd int) (*Socket, error) {
	if err := term.SetRaw(fd); err != nil {
		return nil, translateErrno("term.SetRaw", err)
	}
	s := Create(rt, loop, TTY)
	s.ttyDir = dir
	if err := s.Open(fd); err != nil {
		_ = term.RestoreFD(fd)
		return nil, err
	}
	return s, nil
}

// CloseTTY restores the terminal's original mode in addition to the
// ordinary Close semantics.
func (s *Socket) CloseTTY() error {
	if s.Type() != TTY {
		return catcode.New(catcode.EINVAL, "CloseTTY called on a non-TTY socket")
	}
	fd := s.FD()
	closeErr := s.Close()
	restoreErr := term.RestoreFD(fd)
	if closeErr != nil {
		return closeErr
	}
	return restoreErr
}
