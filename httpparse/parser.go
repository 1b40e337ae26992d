package httpparse

import (
	"strconv"
	"strings"

	"github.com/libcat/cat/catcode"
)

type state int

const (
	sMessageBegin state = iota
	sReqMethod
	sReqURL
	sReqHTTPVersion
	sResHTTPVersion
	sResStatusCode
	sResStatusText
	sHeaderFieldStart
	sHeaderField
	sHeaderValueStart
	sHeaderValue
	sHeadersAlmostDone
	sHeadersDone
	sBodyIdentity
	sBodyChunkSizeStart
	sBodyChunkSizeDigits
	sBodyChunkData
	sBodyChunkDataAlmostDone
	sChunkTrailer
	sMessageDone
)

// Parser is a fixed-size incremental HTTP/1.x message parser (§4.5),
// consuming bytes via Execute and pausing at whichever events its Mask
// does not exclude. A zero Parser is not usable; construct with New.
type Parser struct {
	typ      Type
	mask     Mask
	state    state

	// scratch is the ≤12-byte header-name prefix buffer (§3's "small
	// scratch buffer for case-insensitive header-name prefix matching").
	scratch    [12]byte
	scratchLen int

	headerField strings.Builder
	headerValue strings.Builder

	contentLength    int64
	hasContentLength bool
	chunked          bool
	chunkRemaining   int64
	keepAlive        bool
	sawConnection    bool

	ct contentTypeLexer
	mp *multipartParser

	// last-call result, read via accessors after Execute returns.
	lastEvent    Event
	lastData     []byte
	consumed     int
	cursor       int
	messageDone  bool
}

// New creates a Parser for the given message grammar and event mask.
func New(typ Type, mask Mask) *Parser {
	p := &Parser{typ: typ, mask: mask, keepAlive: true}
	p.ct.reset()
	return p
}

// Reset clears parse progress and multipart state but preserves the
// event mask and parser type (§4.5 "reset()").
func (p *Parser) Reset() {
	typ, mask := p.typ, p.mask
	*p = Parser{typ: typ, mask: mask, keepAlive: true}
	p.ct.reset()
}

// resetMessageState clears everything specific to the message just
// completed, so a keep-alive connection's next message (parsed by the
// same Parser) starts from a clean content-type lexer, multipart
// sub-parser, and header accumulators.
func (p *Parser) resetMessageState() {
	p.contentLength = 0
	p.hasContentLength = false
	p.chunked = false
	p.chunkRemaining = 0
	p.sawConnection = false
	p.ct.reset()
	p.mp = nil
}

// SetType changes the expected grammar; fails with EMISUSE if called
// mid-stream (§4.5 "set_type() fails if called mid-stream").
func (p *Parser) SetType(typ Type) error {
	if p.state != sMessageBegin {
		return catcode.New(catcode.EMISUSE, "SetType called mid-message")
	}
	p.typ = typ
	return nil
}

// LastEvent, LastData, BytesConsumed, Cursor, and MessageComplete are
// the "bytes-parsed accounting" accessors (§4.5).
func (p *Parser) LastEvent() Event      { return p.lastEvent }
func (p *Parser) LastData() []byte      { return p.lastData }
func (p *Parser) BytesConsumed() int    { return p.consumed }
func (p *Parser) Cursor() int           { return p.cursor }
func (p *Parser) MessageComplete() bool { return p.messageDone }
func (p *Parser) KeepAlive() bool       { return p.keepAlive }

// Execute feeds buf[cursor:] into the parser starting at the cursor
// left by the previous call (or 0 on a fresh/Reset parser), advancing
// until an unmasked event fires or the buffer is exhausted, and returns
// the number of bytes consumed this call. Callers drive the loop:
// inspect LastEvent/LastData, consume the slice, call Execute again
// (with the same buf, since Cursor tracks position) to resume.
func (p *Parser) Execute(buf []byte) (int, error) {
	p.lastEvent = EventNone
	p.lastData = nil
	start := p.cursor
	i := start

	emit := func(e Event, data []byte) bool {
		p.lastEvent = e
		p.lastData = data
		p.cursor = i
		p.consumed = i - start
		return p.mask.has(e)
	}

	for i < len(buf) {
		c := buf[i]
		switch p.state {
		case sMessageBegin:
			p.messageDone = false
			if emit(EventMessageBegin, nil) {
				i++
				p.state = p.firstLineState()
				return i - start, nil
			}
			p.state = p.firstLineState()

		case sReqMethod:
			if c == ' ' {
				p.state = sReqURL
				i++
				continue
			}
		case sReqURL:
			if c == ' ' {
				if emit(EventURL, buf[urlStart(buf, i):i]) {
					i++
					p.state = sReqHTTPVersion
					return i - start, nil
				}
				p.state = sReqHTTPVersion
			}
		case sReqHTTPVersion, sResHTTPVersion:
			if c == '\n' {
				if p.state == sResHTTPVersion {
					p.state = sResStatusCode
				} else {
					p.state = sHeaderFieldStart
				}
			}
		case sResStatusCode:
			if c == ' ' {
				p.state = sResStatusText
			}
		case sResStatusText:
			if c == '\n' {
				if emit(EventStatus, nil) {
					i++
					p.state = sHeaderFieldStart
					return i - start, nil
				}
				p.state = sHeaderFieldStart
			}

		case sHeaderFieldStart:
			if c == '\r' {
				p.state = sHeadersAlmostDone
				i++
				continue
			}
			if c == '\n' {
				p.state = sHeadersDone
				continue
			}
			p.headerField.Reset()
			p.scratchLen = 0
			p.state = sHeaderField
			continue
		case sHeaderField:
			if c == ':' {
				name := p.headerField.String()
				if err := p.ct.onHeaderFieldDone(name); err != nil {
					return i - start, err
				}
				if emit(EventHeaderField, []byte(name)) {
					i++
					p.state = sHeaderValueStart
					return i - start, nil
				}
				p.state = sHeaderValueStart
				i++
				continue
			}
			p.headerField.WriteByte(lower(c))
			if p.scratchLen < len(p.scratch) {
				p.scratch[p.scratchLen] = lower(c)
				p.scratchLen++
			}
		case sHeaderValueStart:
			if c == ' ' || c == '\t' {
				i++
				continue
			}
			p.headerValue.Reset()
			p.ct.beginValue()
			p.state = sHeaderValue
			continue
		case sHeaderValue:
			if c == '\r' || c == '\n' {
				value := strings.TrimRight(p.headerValue.String(), " \t")
				if err := p.applyHeader(p.headerField.String(), value); err != nil {
					return i - start, err
				}
				if emit(EventHeaderValue, []byte(value)) {
					if c == '\r' {
						i++
					}
					p.state = sHeaderFieldStart
					return i - start, nil
				}
				p.state = sHeaderFieldStart
				if c == '\n' {
					continue
				}
			} else {
				p.headerValue.WriteByte(c)
				p.ct.feed(c)
			}
		case sHeadersAlmostDone:
			if c == '\n' {
				p.state = sHeadersDone
			}
		case sHeadersDone:
			if emit(EventHeadersComplete, nil) {
				i++
				p.enterBody()
				return i - start, nil
			}
			p.enterBody()
			continue

		case sBodyIdentity:
			n := len(buf) - i
			if p.hasContentLength && int64(n) > p.contentLength {
				n = int(p.contentLength)
			}
			data := buf[i : i+n]
			consumed, done, err := p.deliverBody(data)
			if err != nil {
				return i - start, err
			}
			i += consumed
			if p.hasContentLength {
				p.contentLength -= int64(consumed)
				if p.contentLength <= 0 {
					p.state = sMessageDone
				}
			}
			if done {
				p.cursor = i
				p.consumed = i - start
				return i - start, nil
			}
			continue

		case sBodyChunkSizeStart, sBodyChunkSizeDigits:
			if c == '\r' {
				i++
				continue
			}
			if c == '\n' {
				if p.chunkRemaining == 0 {
					p.state = sMessageDone
				} else {
					p.state = sBodyChunkData
				}
				if emit(EventChunkHeader, nil) {
					i++
					return i - start, nil
				}
				i++
				continue
			}
			if v, ok := hexDigit(c); ok {
				p.chunkRemaining = p.chunkRemaining*16 + int64(v)
				p.state = sBodyChunkSizeDigits
			}
		case sBodyChunkData:
			n := len(buf) - i
			if int64(n) > p.chunkRemaining {
				n = int(p.chunkRemaining)
			}
			data := buf[i : i+n]
			consumed, done, err := p.deliverBody(data)
			if err != nil {
				return i - start, err
			}
			i += consumed
			p.chunkRemaining -= int64(consumed)
			if p.chunkRemaining == 0 {
				p.state = sBodyChunkDataAlmostDone
			}
			if done {
				p.cursor = i
				p.consumed = i - start
				return i - start, nil
			}
			continue
		case sBodyChunkDataAlmostDone:
			if c == '\n' {
				if emit(EventChunkComplete, nil) {
					i++
					p.state = sBodyChunkSizeStart
					return i - start, nil
				}
				p.state = sBodyChunkSizeStart
			}
		case sChunkTrailer:
			if c == '\n' {
				p.state = sMessageDone
			}

		case sMessageDone:
			p.messageDone = true
			p.state = sMessageBegin
			p.resetMessageState()
			if emit(EventMessageComplete, nil) {
				i++
				return i - start, nil
			}
			continue
		}
		i++
	}

	p.cursor = i
	p.consumed = i - start
	if p.state == sMessageDone {
		p.messageDone = true
		p.state = sMessageBegin
	}
	return i - start, nil
}

// Finish signals connection close to a message whose body has no
// explicit length (no Content-Length, not chunked): such a body runs
// until EOF, which Execute alone cannot detect from buffered bytes.
// Calling Finish at any other point is a no-op unless the message is
// genuinely incomplete, which is reported as EINVAL.
func (p *Parser) Finish() error {
	if p.state == sBodyIdentity && !p.hasContentLength && !p.chunked {
		p.state = sMessageBegin
		p.messageDone = true
		p.lastEvent = EventMessageComplete
		p.lastData = nil
		p.resetMessageState()
		return nil
	}
	if p.state != sMessageBegin {
		return catcode.New(catcode.EINVAL, "connection closed with message incomplete")
	}
	return nil
}

func (p *Parser) firstLineState() state {
	switch p.typ {
	case TypeRequest:
		return sReqMethod
	case TypeResponse:
		return sResHTTPVersion
	default:
		return sReqMethod
	}
}

func (p *Parser) applyHeader(name, value string) error {
	low := strings.ToLower(name)
	switch low {
	case "content-length":
		n, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			p.contentLength = n
			p.hasContentLength = true
		}
	case "transfer-encoding":
		if strings.EqualFold(value, "chunked") {
			p.chunked = true
		}
	case "connection":
		p.sawConnection = true
		p.keepAlive = strings.EqualFold(value, "keep-alive")
	}
	return p.ct.onHeaderValueDone(value)
}

func (p *Parser) enterBody() {
	if p.ct.isMultipart && p.mp == nil {
		p.mp = newMultipartParser(p.ct.boundaryValue())
	}
	if p.chunked {
		p.state = sBodyChunkSizeStart
		p.chunkRemaining = 0
		return
	}
	if p.hasContentLength && p.contentLength == 0 {
		p.state = sMessageDone
		return
	}
	p.state = sBodyIdentity
}

// deliverBody routes body bytes either to the core Body event or, when
// the multipart escape has engaged, into the multipart sub-parser
// (§4.5 "the HTTP core pauses emission of BODY events and forwards the
// body bytes to the multipart sub-parser instead"). consumed reports
// how many of data's bytes were actually processed — the sub-parser
// may pause mid-chunk, short of len(data).
func (p *Parser) deliverBody(data []byte) (consumed int, paused bool, err error) {
	if p.mp != nil && p.mp.ready {
		return p.mp.execute(p, data)
	}
	if len(data) == 0 {
		return 0, false, nil
	}
	return len(data), p.emitBody(data), nil
}

func (p *Parser) emitBody(data []byte) bool {
	p.lastEvent = EventBody
	p.lastData = data
	return p.mask.has(EventBody)
}

func urlStart(buf []byte, end int) int {
	for i := end - 1; i >= 0; i-- {
		if buf[i] == ' ' {
			return i + 1
		}
	}
	return 0
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}
