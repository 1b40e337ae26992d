package httpparse

import (
	"strings"

	"github.com/libcat/cat/catcode"
)

type mpState int

const (
	mpStart mpState = iota
	mpStartBoundary
	mpHeaderFieldStart
	mpHeaderField
	mpHeaderValueStart
	mpHeaderValue
	mpHeadersAlmostDone
	mpPartDataStart
	mpPartData
	mpEnd
)

// multipartParser is §4.5's multipart sub-parser: a boundary-matching
// state machine the HTTP core escapes body bytes into once a
// multipart/* Content-Type and its boundary have been recognized by
// contentTypeLexer. Grounded procedurally on the C
// deps/multipart_parser library this distills, treated as a black-box
// "boundary in, 7 events out" lexer rather than translated line for
// line.
type multipartParser struct {
	boundary     string
	dashBoundary string
	ready        bool
	state        mpState
	headerField  strings.Builder
	headerValue  strings.Builder
	index        int
}

func newMultipartParser(boundary string) *multipartParser {
	return &multipartParser{
		boundary:     boundary,
		dashBoundary: "--" + boundary,
		ready:        true,
		state:        mpStart,
	}
}

// execute consumes a prefix of data (a chunk of HTTP body bytes),
// emitting multipart events into the owning Parser's lastEvent/
// lastData (the same pausing contract as the core parser's Execute),
// and returns how many bytes of data it actually consumed — the HTTP
// core must only advance its own cursor and Content-Length/chunk
// counters by this amount, not by len(data), since a pause can land
// mid-chunk.
func (m *multipartParser) execute(p *Parser, data []byte) (consumed int, paused bool, err error) {
	i := 0
	for i < len(data) {
		c := data[i]
		switch m.state {
		case mpStart:
			// Look for the leading dash-boundary, possibly preceded by CRLF.
			if c == '\r' || c == '\n' {
				i++
				continue
			}
			m.state = mpStartBoundary
			m.index = 0
			continue
		case mpStartBoundary:
			if c == m.dashBoundary[m.index] {
				m.index++
				i++
				if m.index == len(m.dashBoundary) {
					m.state = mpHeaderFieldStart
					if p.mask.has(EventMultipartDataBegin) {
						p.lastEvent = EventMultipartDataBegin
						p.lastData = nil
						return i, true, nil
					}
				}
				continue
			}
			// Boundary mismatch inside a body we were told is multipart:
			// treat remainder as malformed multipart body.
			return i, false, multipartBodyError()

		case mpHeaderFieldStart:
			if c == '\r' {
				i++
				continue
			}
			if c == '\n' {
				m.state = mpPartDataStart
				i++
				continue
			}
			m.headerField.Reset()
			m.state = mpHeaderField
			continue
		case mpHeaderField:
			if c == ':' {
				if p.mask.has(EventMultipartHeaderField) {
					p.lastEvent = EventMultipartHeaderField
					p.lastData = []byte(m.headerField.String())
					i++
					return i, true, nil
				}
				m.state = mpHeaderValueStart
				i++
				continue
			}
			m.headerField.WriteByte(c)
		case mpHeaderValueStart:
			if c == ' ' {
				i++
				continue
			}
			m.headerValue.Reset()
			m.state = mpHeaderValue
			continue
		case mpHeaderValue:
			if c == '\r' {
				if p.mask.has(EventMultipartHeaderValue) {
					p.lastEvent = EventMultipartHeaderValue
					p.lastData = []byte(m.headerValue.String())
					i++
					m.state = mpHeadersAlmostDone
					return i, true, nil
				}
				m.state = mpHeadersAlmostDone
				i++
				continue
			}
			m.headerValue.WriteByte(c)
		case mpHeadersAlmostDone:
			if c == '\n' {
				m.state = mpHeaderFieldStart
				i++
				// A blank line (field start immediately hitting '\n' next
				// iteration) signals headers-complete; peek is handled by
				// mpHeaderFieldStart transitioning to mpPartDataStart.
				continue
			}

		case mpPartDataStart:
			if p.mask.has(EventMultipartHeadersComplete) {
				p.lastEvent = EventMultipartHeadersComplete
				p.lastData = nil
				m.state = mpPartData
				m.index = 0
				return i, true, nil
			}
			m.state = mpPartData
			m.index = 0
			continue
		case mpPartData:
			// scan for the boundary within data, emitting everything
			// before it as MULTIPART_DATA.
			rest := data[i:]
			marker := "\r\n" + m.dashBoundary
			at := strings.Index(string(rest), marker)
			if at < 0 {
				if len(rest) > 0 && p.mask.has(EventMultipartData) {
					p.lastEvent = EventMultipartData
					p.lastData = rest
					return len(data), true, nil
				}
				return len(data), false, nil
			}
			if at > 0 && p.mask.has(EventMultipartData) {
				p.lastEvent = EventMultipartData
				p.lastData = rest[:at]
				i += at
				return i, true, nil
			}
			i += at + len(marker)
			m.state = mpHeaderFieldStart
			i = m.checkFinalBoundary(data, i)
			if p.mask.has(EventMultipartDataEnd) {
				p.lastEvent = EventMultipartDataEnd
				p.lastData = nil
				return i, true, nil
			}
			continue
		case mpEnd:
			i = len(data)
		}
		i++
	}
	return i, false, nil
}

// checkFinalBoundary consumes the "--" terminator (or trailing CRLF)
// that follows a dash-boundary, transitioning to mpEnd on the
// terminal "--".
func (m *multipartParser) checkFinalBoundary(data []byte, i int) int {
	if i+1 < len(data) && data[i] == '-' && data[i+1] == '-' {
		m.state = mpEnd
		return i + 2
	}
	return i
}

func multipartBodyError() error {
	return catcode.New(catcode.EMULTIPARTBODY, "malformed multipart body")
}
