package httpparse

import (
	"strings"

	"github.com/libcat/cat/catcode"
)

// ctState is the content-type lexer's precise state enumeration (§4.5
// "states of the content-type lexer").
type ctState int

const (
	ctUninit ctState = iota
	ctInContentType
	ctTypeIsMultipart
	ctAlmostBoundary
	ctBoundary
	ctBoundaryStart
	ctBoundaryCommon
	ctBoundaryQuoted
	ctBoundaryEnd
	ctOutContentType
	ctNotMultipart
	ctBoundaryOK
)

const boundaryMaxLen = 70

// boundaryChars are the RFC 2046 bchars, plus the one byte of internal
// lookahead for the trailing-space-is-stripped rule.
const boundaryChars = "'()+,-./:=?_ " +
	"0123456789" +
	"abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// contentTypeLexer recognizes a multipart/* Content-Type header
// on-the-fly as header bytes stream through the core parser (§4.5
// "multipart escape"), tracked independent of whether the caller's
// event mask actually surfaces HEADER_FIELD/HEADER_VALUE.
type contentTypeLexer struct {
	state          ctState
	seenHeader     bool
	inHeader       bool
	match          string // literal being matched against (multipart/, boundary=)
	matchPos       int
	boundary       strings.Builder
	boundaryQuoted bool
	isMultipart    bool
	err            error
}

func (l *contentTypeLexer) reset() {
	*l = contentTypeLexer{state: ctUninit}
}

// onHeaderFieldDone is called with the lowercased header name once the
// ':' is seen; it enforces the duplicate-Content-Type rule.
func (l *contentTypeLexer) onHeaderFieldDone(name string) error {
	l.inHeader = strings.EqualFold(name, "content-type")
	if l.inHeader {
		if l.seenHeader {
			return catcode.New(catcode.EDUPLICATECONTENTTYPE, "duplicate Content-Type header")
		}
		l.seenHeader = true
	}
	return nil
}

// beginValue is called when the header value starts (after OWS is
// skipped); only relevant when inHeader is true.
func (l *contentTypeLexer) beginValue() {
	if !l.inHeader {
		return
	}
	l.state = ctInContentType
	l.match = "multipart/"
	l.matchPos = 0
}

// feed consumes one byte of the Content-Type header value.
func (l *contentTypeLexer) feed(c byte) {
	if !l.inHeader || l.err != nil || l.state == ctNotMultipart || l.state == ctBoundaryOK {
		return
	}
	lc := lowerByte(c)
	switch l.state {
	case ctInContentType:
		if lc == l.match[l.matchPos] {
			l.matchPos++
			if l.matchPos == len(l.match) {
				l.isMultipart = true
				l.state = ctTypeIsMultipart
			}
			return
		}
		l.state = ctNotMultipart
	case ctTypeIsMultipart:
		if c == ';' {
			l.state = ctAlmostBoundary
			return
		}
		// still inside the subtype (e.g. "multipart/form-data"); ignore.
	case ctAlmostBoundary:
		if c == ' ' || c == '\t' {
			return
		}
		l.state = ctBoundary
		l.match = "boundary="
		l.matchPos = 0
		fallthrough
	case ctBoundary:
		if lc == l.match[l.matchPos] {
			l.matchPos++
			if l.matchPos == len(l.match) {
				l.state = ctBoundaryStart
				l.boundary.Reset()
			}
			return
		}
		// not the boundary parameter; skip until next ';'.
		l.state = ctOutContentType
	case ctBoundaryStart:
		if c == '"' {
			l.boundaryQuoted = true
			l.state = ctBoundaryQuoted
			return
		}
		l.boundaryQuoted = false
		l.state = ctBoundaryCommon
		l.appendBoundaryByte(c)
	case ctBoundaryCommon:
		if c == ';' || c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			l.finishBoundary()
			if c == ';' {
				l.state = ctOutContentType
			} else {
				l.state = ctBoundaryEnd
			}
			return
		}
		l.appendBoundaryByte(c)
	case ctBoundaryQuoted:
		if c == '"' {
			l.finishBoundary()
			l.state = ctBoundaryEnd
			return
		}
		l.appendBoundaryByte(c)
	case ctBoundaryEnd:
		if c == ';' {
			l.state = ctOutContentType
			return
		}
		if c != ' ' && c != '\t' {
			l.err = catcode.New(catcode.EMULTIPARTHEADER, "junk after multipart boundary")
		}
	case ctOutContentType:
		if c == ';' {
			l.state = ctAlmostBoundary
		}
	}
}

// appendBoundaryByte validates and accumulates one boundary character.
func (l *contentTypeLexer) appendBoundaryByte(c byte) {
	if !l.boundaryQuoted && strings.IndexByte(boundaryChars, c) < 0 {
		l.err = catcode.New(catcode.EMULTIPARTHEADER, "invalid character in multipart boundary")
		return
	}
	if l.boundary.Len() >= boundaryMaxLen {
		l.err = catcode.New(catcode.EMULTIPARTHEADER, "multipart boundary too long")
		return
	}
	l.boundary.WriteByte(c)
}

func (l *contentTypeLexer) finishBoundary() {
	b := strings.TrimRight(l.boundary.String(), " \t")
	if b == "" {
		l.err = catcode.New(catcode.EMULTIPARTHEADER, "empty multipart boundary")
		return
	}
	l.boundary.Reset()
	l.boundary.WriteString(b)
}

// onHeaderValueDone finalizes the lexer once the full header value has
// streamed through feed. An unterminated quoted boundary is an error.
func (l *contentTypeLexer) onHeaderValueDone(value string) error {
	if !l.inHeader {
		return nil
	}
	defer func() { l.inHeader = false }()
	if l.err != nil {
		return l.err
	}
	if l.state == ctBoundaryQuoted {
		return catcode.New(catcode.EMULTIPARTHEADER, "unterminated quoted multipart boundary")
	}
	if l.state == ctBoundaryCommon || l.state == ctBoundaryStart {
		l.finishBoundary()
		l.state = ctBoundaryEnd
	}
	if l.isMultipart {
		l.state = ctBoundaryOK
	} else {
		l.state = ctNotMultipart
	}
	return nil
}

func (l *contentTypeLexer) boundaryValue() string { return l.boundary.String() }

func lowerByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
