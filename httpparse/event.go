// Package httpparse implements §4.5's SAX-style, pausable HTTP/1.0 and
// HTTP/1.1 parser, with a first-class escape into a multipart
// sub-parser when a request/response declares a multipart/* body.
// Authored fresh — no corpus example implements an HTTP parser — in the
// teacher's idiom: explicit state enums, small structs, no reflection,
// grounded procedurally on the black-box llhttp/multipart_parser C
// libraries this distills (treated per the out-of-scope list as
// boundary-in, 7-events-out lexers, not translated line-by-line).
package httpparse

// Event identifies which SAX callback the core parser last reached.
type Event int

const (
	EventNone Event = iota
	EventMessageBegin
	EventURL
	EventStatus
	EventHeaderField
	EventHeaderValue
	EventHeadersComplete
	EventBody
	EventChunkHeader
	EventChunkComplete
	EventMessageComplete

	EventMultipartDataBegin
	EventMultipartHeaderField
	EventMultipartHeaderValue
	EventMultipartHeadersComplete
	EventMultipartData
	EventMultipartDataEnd
)

// Mask is a bitset gating which events actually pause the parser
// (§4.5 "each event is gated by a user-provided mask").
type Mask uint32

func bit(e Event) Mask { return 1 << uint(e) }

const (
	MaskMessageBegin     = Mask(1) << EventMessageBegin
	MaskURL              = Mask(1) << EventURL
	MaskStatus            = Mask(1) << EventStatus
	MaskHeaderField      = Mask(1) << EventHeaderField
	MaskHeaderValue      = Mask(1) << EventHeaderValue
	MaskHeadersComplete  = Mask(1) << EventHeadersComplete
	MaskBody             = Mask(1) << EventBody
	MaskChunkHeader      = Mask(1) << EventChunkHeader
	MaskChunkComplete    = Mask(1) << EventChunkComplete
	MaskMessageComplete  = Mask(1) << EventMessageComplete

	MaskMultipartDataBegin      = Mask(1) << EventMultipartDataBegin
	MaskMultipartHeaderField    = Mask(1) << EventMultipartHeaderField
	MaskMultipartHeaderValue    = Mask(1) << EventMultipartHeaderValue
	MaskMultipartHeadersComplete = Mask(1) << EventMultipartHeadersComplete
	MaskMultipartData           = Mask(1) << EventMultipartData
	MaskMultipartDataEnd        = Mask(1) << EventMultipartDataEnd

	MaskAll = Mask(1)<<(EventMultipartDataEnd+1) - 1
)

func (m Mask) has(e Event) bool { return m&bit(e) != 0 }

// Type selects which grammar the core parser expects (§4.5 "reset()
// ... preserves ... parser type (request/response/both)").
type Type int

const (
	TypeBoth Type = iota
	TypeRequest
	TypeResponse
)
