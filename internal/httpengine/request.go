package httpengine

import (
	"bufio"
	"io"
	"net"
	"strings"
	"time"

	"github.com/slicingmelon/threadserver/internal/gserr"
	"github.com/valyala/fasthttp"
)

// Limits bounds request parsing. The builtin:http1 descriptor always builds
// its handler with DefaultLimits; it does not read the <h>.ReadTimeout,
// <h>.WriteTimeout, <h>.MaxLineSize or <h>.MaxRequestSize config keys.
type Limits struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxLineSize    int
	MaxRequestSize int
}

// DefaultLimits are conservative built-in defaults, used by the descriptor;
// Worker also substitutes them for zero fields when reading a request.
var DefaultLimits = Limits{
	ReadTimeout:    30 * time.Second,
	WriteTimeout:   30 * time.Second,
	MaxLineSize:    8 * 1024,
	MaxRequestSize: 10 * 1024 * 1024,
}

// Request is a parsed HTTP/1.0-or-1.1 request. The header container is
// fasthttp.RequestHeader, reused for its RFC-822 folded-header reader and
// Peek/VisitAll accessors rather than a hand-rolled header map.
type Request struct {
	Header      fasthttp.RequestHeader
	Method      string
	Protocol    string
	RawURI      string // the unparsed request-target, "?"/"#" intact
	URI         string // RawURI cut at the first of "?" or "#"
	ContentType string
	Body        []byte
	MatchGroups []string
}

// acceptedProtocols enumerates the two wire protocols this engine accepts.
var acceptedProtocols = map[string]bool{
	"HTTP/1.0": true,
	"HTTP/1.1": true,
}

// ReadRequest parses a request: request line via the header container's own
// reader (which performs the three-token split), protocol validation, URI
// truncation at the first of "?"/"#", header read, and a length- and
// timeout-bounded body read. br's buffer is sized from limits.MaxLineSize so
// an oversized request/header line surfaces as a bufio.ErrBufferFull read
// error rather than an unbounded allocation.
func ReadRequest(conn net.Conn, br *bufio.Reader, limits Limits) (*Request, *gserr.CodedError) {
	if limits.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(limits.ReadTimeout))
	}

	var h fasthttp.RequestHeader
	if err := h.Read(br); err != nil {
		return nil, gserr.NewCoded(400, "malformed request: %v", err)
	}

	protocol := string(h.Protocol())
	if !acceptedProtocols[protocol] {
		return nil, gserr.NewCoded(400, "unsupported protocol %q", protocol)
	}

	rawURI := string(h.RequestURI())
	uri := cutAtQueryOrFragment(rawURI)

	contentType := string(h.ContentType())
	if contentType == "" {
		contentType = "text/plain"
	}

	req := &Request{
		Header:      h,
		Method:      string(h.Method()),
		Protocol:    protocol,
		RawURI:      rawURI,
		URI:         uri,
		ContentType: contentType,
	}

	contentLength := h.ContentLength()
	if contentLength < 0 {
		contentLength = 0
	}
	if contentLength > 0 {
		if contentLength > limits.MaxRequestSize {
			return nil, gserr.NewCoded(400, "request body of %d bytes exceeds limit of %d", contentLength, limits.MaxRequestSize)
		}
		body := make([]byte, contentLength)
		if _, err := io.ReadFull(br, body); err != nil {
			return nil, gserr.NewCoded(400, "short request body: %v", err)
		}
		req.Body = body
	}

	return req, nil
}

// cutAtQueryOrFragment cuts the request-target at the first of "?" or "#".
func cutAtQueryOrFragment(rawURI string) string {
	cut := len(rawURI)
	if i := strings.IndexByte(rawURI, '?'); i >= 0 && i < cut {
		cut = i
	}
	if i := strings.IndexByte(rawURI, '#'); i >= 0 && i < cut {
		cut = i
	}
	return rawURI[:cut]
}
