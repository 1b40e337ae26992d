//go:build !windows

package term

import (
	"github.com/pkg/term/termios"
)

// SetRaw puts the terminal connected to fd into raw (non-canonical,
// unechoed) mode, snapshotting its original termios state first so
// Restore/RestoreFD can undo it later. Used by the socket engine's TTY
// role around stdin/stdout/stderr sockets.
func SetRaw(fd int) error {
	if _, err := getOriginalTermios(fd); err != nil {
		return err
	}
	attr, err := termios.Tcgetattr(uintptr(fd))
	if err != nil {
		return err
	}
	termios.Cfmakeraw(attr)
	return termios.Tcsetattr(uintptr(fd), termios.TCSANOW, attr)
}
