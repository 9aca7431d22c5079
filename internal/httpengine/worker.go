package httpengine

import (
	"bufio"
	"fmt"

	"github.com/slicingmelon/threadserver/internal/dispatch"
	"github.com/slicingmelon/threadserver/internal/gserr"
	"github.com/slicingmelon/threadserver/internal/gslog"
)

// Worker is the HTTP protocol engine's dispatch.Worker implementation: one
// per worker goroutine in an HTTP Handler's pool, sharing the handler's
// Registry and Limits across every SocketWork it processes.
type Worker struct {
	registry *Registry
	limits   Limits
	log      *gslog.Logger
}

// NewWorker builds a Worker bound to registry and limits. Intended as the
// WorkerFactory closure a HandlerDescriptor's New func hands to
// dispatch.NewHandler.
func NewWorker(registry *Registry, limits Limits) *Worker {
	return &Worker{registry: registry, limits: limits}
}

func (w *Worker) OnStart() { w.log = gslog.Default() }
func (w *Worker) OnStop()  {}

// Handle runs one request end to end: ACL short-circuit, request parse,
// routing, dispatch, response serialization, and access logging.
func (w *Worker) Handle(work *dispatch.SocketWork) error {
	if work.Forbidden {
		resp := NewResponse()
		resp.Status = 403
		resp.Body = []byte("Forbidden")
		return w.finish(work, "HTTP/1.0", "-", "-", resp)
	}

	br := bufio.NewReaderSize(work.Conn, limitOr(w.limits.MaxLineSize, DefaultLimits.MaxLineSize))
	req, codedErr := ReadRequest(work.Conn, br, w.withDefaults())
	if codedErr != nil {
		resp := NewResponse()
		resp.Status = codedErr.Code
		resp.Body = []byte(codedErr.Message)
		return w.finish(work, "HTTP/1.0", "-", "-", resp)
	}

	resp := NewResponse()
	fn, groups, matched := w.registry.Match(req.URI)
	if !matched {
		resp.Status = 404
		resp.Body = []byte(fmt.Sprintf("<html><body><h1>404 Not Found</h1><p>%s</p></body></html>", req.RawURI))
	} else {
		req.MatchGroups = groups
		if err := fn(req, resp); err != nil {
			applyMethodError(resp, err)
		}
	}

	return w.finish(work, req.Protocol, req.Method, req.RawURI, resp)
}

// applyMethodError maps a method's returned error onto the response: a
// *gserr.CodedError sets the status, and for codes >= 400 also replaces the
// body with its message; anything else becomes a 500.
func applyMethodError(resp *Response, err error) {
	if coded, ok := gserr.AsCoded(err); ok {
		resp.Status = coded.Code
		if coded.Code >= 400 {
			resp.Body = []byte(coded.Message)
		}
		return
	}
	resp.Status = 500
	resp.Body = []byte(err.Error())
}

func (w *Worker) withDefaults() Limits {
	l := w.limits
	if l.ReadTimeout == 0 {
		l.ReadTimeout = DefaultLimits.ReadTimeout
	}
	if l.WriteTimeout == 0 {
		l.WriteTimeout = DefaultLimits.WriteTimeout
	}
	if l.MaxLineSize == 0 {
		l.MaxLineSize = DefaultLimits.MaxLineSize
	}
	if l.MaxRequestSize == 0 {
		l.MaxRequestSize = DefaultLimits.MaxRequestSize
	}
	return l
}

func limitOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// finish writes resp to the connection and logs "<status> <method>
// <unparsedUri>" at INFO (<400), WARN (400-499), or ERROR (>=500), unless
// resp.DontLog is set.
func (w *Worker) finish(work *dispatch.SocketWork, protocol, method, rawURI string, resp *Response) error {
	err := writeResponse(work.Conn, protocol, resp, w.limits.WriteTimeout)

	if !resp.DontLog {
		line := fmt.Sprintf("%d %s %s", resp.Status, method, rawURI)
		if resp.DebugLogInfo != "" {
			line = fmt.Sprintf("[%s] %s", resp.DebugLogInfo, line)
		}
		switch {
		case resp.Status >= 500:
			w.log.Error().Msg(line)
		case resp.Status >= 400:
			w.log.Warning().Msg(line)
		default:
			w.log.Info().Msg(line)
		}
	}

	return err
}
