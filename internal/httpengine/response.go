package httpengine

import (
	"bufio"
	"net"
	"time"

	"github.com/VictoriaMetrics/VictoriaMetrics/lib/bytesutil"
	"github.com/valyala/fasthttp"
)

var (
	strCRLF       = []byte("\r\n")
	strColonSpace = []byte(": ")
	strSpace      = []byte(" ")

	// responseBufPool is a pooled byte buffer for response assembly, reused
	// across every write on a worker.
	responseBufPool bytesutil.ByteBufferPool
)

// Response is what a registered method writes status, body, headers, and
// content type into.
type Response struct {
	Header        fasthttp.ResponseHeader
	Status        int
	StatusMessage string
	ContentType   string
	Body          []byte
	// DontLog suppresses the per-response access-log line otherwise always
	// emitted.
	DontLog bool
	// DebugLogInfo is prepended in brackets to the access-log line when set.
	DebugLogInfo string
}

// NewResponse returns a Response defaulted to 200 OK, text/plain — methods
// override whichever fields their outcome calls for.
func NewResponse() *Response {
	return &Response{Status: 200, ContentType: "text/plain"}
}

// writeResponse serializes and writes resp onto conn, using
// fasthttp.ResponseHeader's VisitAll plus a pooled byte buffer to assemble
// the outgoing bytes.
func writeResponse(conn net.Conn, protocol string, resp *Response, writeTimeout time.Duration) error {
	if writeTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	}

	if resp.ContentType != "" {
		resp.Header.SetContentType(resp.ContentType)
	}
	resp.Header.SetContentLength(len(resp.Body))

	buf := responseBufPool.Get()
	defer responseBufPool.Put(buf)

	buf.Write([]byte(protocol))
	buf.Write(strSpace)
	buf.B = fasthttp.AppendUint(buf.B, resp.Status)
	buf.Write(strSpace)
	buf.Write([]byte(reasonPhrase(resp.Status, resp.StatusMessage)))
	buf.Write(strCRLF)

	resp.Header.VisitAll(func(key, value []byte) {
		buf.Write(key)
		buf.Write(strColonSpace)
		buf.Write(value)
		buf.Write(strCRLF)
	})
	buf.Write(strCRLF)
	buf.Write(resp.Body)

	w := bufio.NewWriter(conn)
	if _, err := w.Write(buf.B); err != nil {
		return err
	}
	return w.Flush()
}
