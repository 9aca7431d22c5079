package frpcengine

import (
	"bufio"
	"net"
	"strings"

	"github.com/slicingmelon/threadserver/internal/dispatch"
	"github.com/slicingmelon/threadserver/internal/gslog"
)

// Codec is the injected external RPC wire-protocol collaborator: binds a
// registry and a header pair to a connection and drives the request/
// response cycle — a collaborator left external to this engine.
type Codec interface {
	Serve(conn net.Conn, registry *MethodRegistry, headersIn, headersOut Header) error
}

// acceptHeader is the advertised accept-types line for both the 403 path
// and, by convention, the engine's own responses.
const acceptHeader = "Accept: text/xml, application/x-frpc\r\n"

// Worker is the per-thread FRPC capability record: a lazily-constructed
// codec instance and an inbound/outbound header pair, rebuilt for each
// worker goroutine.
type Worker struct {
	registry   *MethodRegistry
	newCodec   func() Codec
	codec      Codec
	headersIn  Header
	headersOut Header
	log        *gslog.Logger
}

// NewWorker builds a Worker bound to registry, constructing a fresh Codec
// from newCodec once per worker goroutine (OnStart), not once per request.
func NewWorker(registry *MethodRegistry, newCodec func() Codec) *Worker {
	return &Worker{registry: registry, newCodec: newCodec}
}

func (w *Worker) OnStart() {
	w.log = gslog.Default()
	w.codec = w.newCodec()
	w.headersIn = Header{}
	w.headersOut = Header{}
}

func (w *Worker) OnStop() {}

// Handle answers a forbidden connection with the synthetic 403 framing;
// otherwise the codec drives the RPC cycle against this worker's registry
// and header pair.
func (w *Worker) Handle(work *dispatch.SocketWork) error {
	if work.Forbidden {
		return writeForbidden(work.Conn)
	}

	clear(w.headersIn)
	clear(w.headersOut)
	return w.codec.Serve(work.Conn, w.registry, w.headersIn, w.headersOut)
}

// writeForbidden writes a synthetic 403 response: "<proto> 403
// Forbidden\r\n" as one coherent status line. The protocol token is read
// from whatever request line the peer already sent, falling back to
// HTTP/1.0 if it can't be parsed — a forbidden peer never reaches the
// registered-method dispatch path either way.
func writeForbidden(conn net.Conn) error {
	proto := "HTTP/1.0"
	if line, err := bufio.NewReader(conn).ReadString('\n'); err == nil {
		fields := strings.Fields(line)
		if len(fields) == 3 && (fields[2] == "HTTP/1.0" || fields[2] == "HTTP/1.1") {
			proto = fields[2]
		}
	}

	data := proto + " 403 Forbidden\r\n" + acceptHeader + "\r\n"
	_, err := conn.Write([]byte(data))
	return err
}
