//go:build linux || darwin

// Thin unix.* wrappers for closing, reading and writing a file
// descriptor. loop.go's wake-pipe plumbing and wakeup_linux.go /
// wakeup_darwin.go call unix (or syscall) directly, not these.
package reactor

import (
	"golang.org/x/sys/unix"
)

// closeFD closes a file descriptor on Unix systems.
func closeFD(fd int) error {
	return unix.Close(fd)
}

// readFD reads from a file descriptor on Unix systems.
func readFD(fd int, buf []byte) (int, error) {
	return unix.Read(fd, buf)
}

// writeFD writes to a file descriptor on Unix systems.
func writeFD(fd int, buf []byte) (int, error) {
	return unix.Write(fd, buf)
}
