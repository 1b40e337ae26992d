package socket

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/libcat/cat/catcode"
)

// translateErrno maps a raw syscall error onto §7's taxonomy, per the
// socket engine's failure columns (EADDRINUSE, EACCES, ECONNREFUSED,
// ECONNRESET, ECONNABORTED, EHOSTUNREACH, ENETUNREACH, EBADF, EPIPE,
// ENOBUFS, EINVAL). Errors the kernel never raises for these ops fall
// back to EIO so callers always get a branchable Code.
func translateErrno(op string, err error) error {
	if err == nil {
		return nil
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return catcode.Wrap(err, catcode.EIO, op)
	}

	switch errno {
	case unix.EADDRINUSE:
		return catcode.Wrap(err, catcode.EADDRINUSE, op)
	case unix.EACCES, unix.EPERM:
		return catcode.Wrap(err, catcode.EACCES, op)
	case unix.ECONNREFUSED:
		return catcode.Wrap(err, catcode.ECONNREFUSED, op)
	case unix.ECONNRESET:
		return catcode.Wrap(err, catcode.ECONNRESET, op)
	case unix.ECONNABORTED:
		return catcode.Wrap(err, catcode.ECONNABORTED, op)
	case unix.EHOSTUNREACH:
		return catcode.Wrap(err, catcode.EHOSTUNREACH, op)
	case unix.ENETUNREACH:
		return catcode.Wrap(err, catcode.ENETUNREACH, op)
	case unix.EBADF:
		return catcode.Wrap(err, catcode.EBADF, op)
	case unix.EPIPE:
		return catcode.Wrap(err, catcode.EPIPE, op)
	case unix.ENOBUFS:
		return catcode.Wrap(err, catcode.ENOBUFS, op)
	case unix.EINVAL:
		return catcode.Wrap(err, catcode.EINVAL, op)
	case unix.EMFILE:
		return catcode.Wrap(err, catcode.EMFILE, op)
	case unix.ENFILE:
		return catcode.Wrap(err, catcode.ENFILE, op)
	case unix.EAGAIN:
		return catcode.Wrap(err, catcode.EAGAIN, op)
	default:
		return catcode.Wrap(err, catcode.EIO, op)
	}
}
