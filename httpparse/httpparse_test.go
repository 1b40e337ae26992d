package httpparse

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libcat/cat/catcode"
)

// drain runs Execute in a loop until the buffer is exhausted, recording
// every event the mask allowed to fire.
func drain(t *testing.T, p *Parser, buf []byte) []Event {
	t.Helper()
	var events []Event
	for p.Cursor() < len(buf) {
		n, err := p.Execute(buf)
		require.NoError(t, err)
		if p.LastEvent() != EventNone {
			events = append(events, p.LastEvent())
		}
		if n == 0 && p.LastEvent() == EventNone {
			break
		}
	}
	return events
}

func TestRequestHeadersAndBody(t *testing.T) {
	p := New(TypeRequest, MaskAll)
	req := "POST /upload HTTP/1.1\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"hello"

	events := drain(t, p, []byte(req))
	require.Contains(t, events, EventMessageBegin)
	require.Contains(t, events, EventURL)
	require.Contains(t, events, EventHeadersComplete)
	require.Contains(t, events, EventBody)
	require.Contains(t, events, EventMessageComplete)
	require.True(t, p.MessageComplete())
}

func TestResponseStatusLine(t *testing.T) {
	p := New(TypeResponse, MaskAll)
	resp := "HTTP/1.1 200 OK\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n"
	events := drain(t, p, []byte(resp))
	require.Contains(t, events, EventStatus)
	require.Contains(t, events, EventMessageComplete)
}

func TestChunkedBody(t *testing.T) {
	p := New(TypeRequest, MaskAll)
	req := "POST / HTTP/1.1\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"4\r\n" +
		"Wiki\r\n" +
		"0\r\n" +
		"\r\n"
	events := drain(t, p, []byte(req))
	require.Contains(t, events, EventChunkHeader)
	require.Contains(t, events, EventBody)
	require.Contains(t, events, EventMessageComplete)
}

func TestMaskSuppressesPause(t *testing.T) {
	mask := MaskMessageComplete | MaskHeadersComplete
	p := New(TypeRequest, mask)
	req := "GET / HTTP/1.1\r\nHost: x\r\n\r\n"
	events := drain(t, p, []byte(req))
	require.Equal(t, []Event{EventHeadersComplete, EventMessageComplete}, events)
}

func TestDuplicateContentTypeIsError(t *testing.T) {
	p := New(TypeRequest, MaskAll)
	req := "POST / HTTP/1.1\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n"
	buf := []byte(req)
	var lastErr error
	for p.Cursor() < len(buf) {
		_, err := p.Execute(buf)
		if err != nil {
			lastErr = err
			break
		}
	}
	require.Error(t, lastErr)
	require.True(t, catcode.Is(lastErr, catcode.EDUPLICATECONTENTTYPE))
}

func TestMultipartEscape(t *testing.T) {
	p := New(TypeRequest, MaskAll)
	body := "--XBOUNDARY\r\n" +
		"Content-Disposition: form-data; name=\"field\"\r\n" +
		"\r\n" +
		"value\r\n" +
		"--XBOUNDARY--\r\n"
	req := "POST /upload HTTP/1.1\r\n" +
		"Content-Type: multipart/form-data; boundary=XBOUNDARY\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"\r\n" +
		body

	events := drain(t, p, []byte(req))
	require.Contains(t, events, EventMultipartDataBegin)
	require.Contains(t, events, EventMultipartHeadersComplete)
	require.Contains(t, events, EventMultipartData)
	require.NotContains(t, events, EventBody)
}

func TestResetPreservesTypeAndMask(t *testing.T) {
	p := New(TypeRequest, MaskHeadersComplete)
	p.Reset()
	require.Equal(t, TypeRequest, p.typ)
	require.Equal(t, Mask(MaskHeadersComplete), p.mask)
}
