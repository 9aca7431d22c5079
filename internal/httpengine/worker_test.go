package httpengine

import (
	"net"
	"testing"
	"time"

	"github.com/slicingmelon/threadserver/internal/dispatch"
	"github.com/slicingmelon/threadserver/internal/gserr"
	"github.com/slicingmelon/threadserver/internal/httpengine/params"
	"github.com/stretchr/testify/require"
)

type fakeListener struct{ name string }

func (f fakeListener) Name() string { return f.name }

func roundTrip(t *testing.T, w *Worker, forbidden bool, request string) (string, error) {
	t.Helper()
	c1, c2 := net.Pipe()
	work := dispatch.NewSocketWork(c1, fakeListener{"h"}, forbidden)

	done := make(chan error, 1)
	go func() { done <- w.Handle(work) }()

	if request != "" {
		_, err := c2.Write([]byte(request))
		require.NoError(t, err)
	}

	c2.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 8192)
	n, err := c2.Read(buf)
	require.NoError(t, err)
	c2.Close()

	return string(buf[:n]), <-done
}

func TestWorkerHandleHappyPathGET(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(`^/ping$`, func(req *Request, resp *Response) error {
		resp.Body = []byte("pong")
		resp.ContentType = "text/plain"
		return nil
	}))
	w := NewWorker(registry, DefaultLimits)
	w.OnStart()

	resp, err := roundTrip(t, w, false, "GET /ping HTTP/1.0\r\n\r\n")
	require.NoError(t, err)
	require.Contains(t, resp, "HTTP/1.0 200 OK")
	require.Contains(t, resp, "Content-Type: text/plain")
	require.Contains(t, resp, "pong")
}

func TestWorkerHandle404IncludesUnparsedURI(t *testing.T) {
	w := NewWorker(NewRegistry(), DefaultLimits)
	w.OnStart()

	resp, err := roundTrip(t, w, false, "GET /nope HTTP/1.0\r\n\r\n")
	require.NoError(t, err)
	require.Contains(t, resp, "404 Not Found")
	require.Contains(t, resp, "/nope")
}

func TestWorkerHandleForbiddenIs403(t *testing.T) {
	w := NewWorker(NewRegistry(), DefaultLimits)
	w.OnStart()

	resp, err := roundTrip(t, w, true, "")
	require.NoError(t, err)
	require.Contains(t, resp, "403 Forbidden")
}

func TestWorkerHandleMalformedRequestLineIs400AndWorkerSurvives(t *testing.T) {
	w := NewWorker(NewRegistry(), DefaultLimits)
	w.OnStart()

	resp, err := roundTrip(t, w, false, "GARBAGE\r\n\r\n")
	require.NoError(t, err)
	require.Contains(t, resp, "400 Bad Request")
}

func TestWorkerHandleCodedErrorBelow400OverridesStatusOnly(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(`^/redirectish$`, WithParams(func(req *Request, resp *Response, p params.Values) error {
		resp.Body = []byte("see below")
		return gserr.NewCoded(304, "not modified")
	})))
	w := NewWorker(registry, DefaultLimits)
	w.OnStart()

	resp, err := roundTrip(t, w, false, "GET /redirectish HTTP/1.0\r\n\r\n")
	require.NoError(t, err)
	require.Contains(t, resp, "HTTP/1.0 304 Not Modified")
	require.Contains(t, resp, "see below")
}

func TestWorkerHandleURLParams(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(`^/echo$`, WithParams(func(req *Request, resp *Response, p params.Values) error {
		resp.Body = []byte(p.Get("x"))
		return nil
	})))
	w := NewWorker(registry, DefaultLimits)
	w.OnStart()

	resp, err := roundTrip(t, w, false, "GET /echo?x=hello%20world&x=two HTTP/1.0\r\n\r\n")
	require.NoError(t, err)
	require.Contains(t, resp, "hello world")
}
