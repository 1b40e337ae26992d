// Package catcode implements the error taxonomy of §7: every fallible
// operation in the runtime produces both a Code from the POSIX-
// equivalent set (plus library-specific extensions) and an Error
// carrying a human description and a cause chain.
//
// Grounded on reactor/errors.go's cause-chain error types
// (PanicError/AggregateError/WrapError), generalized from "JS-
// compatible error types" into the coroutine runtime's own taxonomy.
package catcode

// Code is a POSIX-equivalent error code, extended with library-specific
// values (§7).
type Code int

const (
	// Argument errors.
	EINVAL Code = iota + 1
	EMISUSE
	ENOTSUP

	// Resource errors.
	ENOMEM
	EMFILE
	ENFILE
	ENOBUFS

	// I/O errors.
	EIO
	EPIPE
	ECONNRESET
	ECONNREFUSED
	ECONNABORTED
	EHOSTUNREACH
	ENETUNREACH
	EBADF
	EADDRINUSE
	EACCES

	// Waiting/cancellation.
	ETIMEDOUT
	ECANCELED
	EAGAIN
	EBUSY
	ELOCKED
	ECLOSED
	ECLOSING

	// Coroutine-scheduler specific (§4.1).
	ESRCH

	// Protocol.
	ESSL
	EAINONAME // DNS: name not known

	// HTTP-specific (§4.5, §6).
	EDUPLICATECONTENTTYPE
	EMULTIPARTHEADER
	EMULTIPARTBODY

	// Process/signal.
	ECHILD
	EPERM
)

// String returns a short lowercase mnemonic, matching the conventional
// POSIX errno name without the leading E stripped (for readability in
// logs: "etimedout", not "18").
func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "eunknown"
}

var codeNames = map[Code]string{
	EINVAL:                 "einval",
	EMISUSE:                "emisuse",
	ENOTSUP:                "enotsup",
	ENOMEM:                 "enomem",
	EMFILE:                 "emfile",
	ENFILE:                 "enfile",
	ENOBUFS:                "enobufs",
	EIO:                    "eio",
	EPIPE:                  "epipe",
	ECONNRESET:             "econnreset",
	ECONNREFUSED:           "econnrefused",
	ECONNABORTED:           "econnaborted",
	EHOSTUNREACH:           "ehostunreach",
	ENETUNREACH:            "enetunreach",
	EBADF:                  "ebadf",
	EADDRINUSE:             "eaddrinuse",
	EACCES:                 "eacces",
	ETIMEDOUT:              "etimedout",
	ECANCELED:              "ecanceled",
	EAGAIN:                 "eagain",
	EBUSY:                  "ebusy",
	ELOCKED:                "elocked",
	ECLOSED:                "eclosed",
	ECLOSING:               "eclosing",
	ESRCH:                  "esrch",
	ESSL:                   "essl",
	EAINONAME:              "eai_noname",
	EDUPLICATECONTENTTYPE:  "eduplicate_content_type",
	EMULTIPARTHEADER:       "emultipart_header",
	EMULTIPARTBODY:         "emultipart_body",
	ECHILD:                 "echild",
	EPERM:                  "eperm",
}

// Recoverable reports whether the recovery expectations of §7 classify
// this code as "always recoverable by the caller".
func (c Code) Recoverable() bool {
	switch c {
	case ETIMEDOUT, ECANCELED, EAGAIN:
		return true
	default:
		return false
	}
}
