package frpcengine

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/slicingmelon/threadserver/internal/dispatch"
	"github.com/slicingmelon/threadserver/internal/gserr"
	"github.com/stretchr/testify/require"
)

type fakeListener struct{}

func (fakeListener) Name() string { return "frpc" }

func TestMethodRegistryCallTranslatesCodedError(t *testing.T) {
	r := NewMethodRegistry()
	r.RegisterMethod("boom", func(params []any, in, out Header) (any, error) {
		return nil, gserr.NewCoded(413, "too much data")
	}, "s:s", "")

	_, fault := r.Call("boom", nil, Header{}, Header{})
	require.NotNil(t, fault)
	require.Equal(t, 413, fault.Status)
	require.Equal(t, "too much data", fault.StatusMessage)
}

func TestMethodRegistryCallTranslatesUnknownErrorTo500(t *testing.T) {
	r := NewMethodRegistry()
	r.RegisterMethod("boom", func(params []any, in, out Header) (any, error) {
		return nil, errors.New("kaboom")
	}, "s:s", "")

	_, fault := r.Call("boom", nil, Header{}, Header{})
	require.Equal(t, 500, fault.Status)
	require.Equal(t, "kaboom", fault.StatusMessage)
}

func TestMethodRegistryCallSucceeds(t *testing.T) {
	r := NewMethodRegistry()
	r.RegisterMethod("echo", func(params []any, in, out Header) (any, error) {
		return params[0], nil
	}, "s:s", "")

	result, fault := r.Call("echo", []any{"hi"}, Header{}, Header{})
	require.Nil(t, fault)
	require.Equal(t, "hi", result)
}

func TestMethodRegistryCallUnknownMethodIs404(t *testing.T) {
	r := NewMethodRegistry()
	_, fault := r.Call("nope", nil, Header{}, Header{})
	require.Equal(t, 404, fault.Status)
}

type fakeCodec struct{ served chan struct{} }

func (c *fakeCodec) Serve(conn net.Conn, registry *MethodRegistry, headersIn, headersOut Header) error {
	close(c.served)
	return nil
}

func TestWorkerHandleDelegatesToCodec(t *testing.T) {
	registry := NewMethodRegistry()
	codec := &fakeCodec{served: make(chan struct{})}
	w := NewWorker(registry, func() Codec { return codec })
	w.OnStart()

	c1, c2 := net.Pipe()
	defer c2.Close()
	work := dispatch.NewSocketWork(c1, fakeListener{}, false)

	require.NoError(t, w.Handle(work))
	select {
	case <-codec.served:
	case <-time.After(time.Second):
		t.Fatal("codec.Serve was never called")
	}
}

func TestWorkerHandleForbiddenWritesSyntheticStatusLine(t *testing.T) {
	w := NewWorker(NewMethodRegistry(), func() Codec { return &fakeCodec{served: make(chan struct{})} })
	w.OnStart()

	c1, c2 := net.Pipe()
	work := dispatch.NewSocketWork(c1, fakeListener{}, true)

	done := make(chan error, 1)
	go func() { done <- w.Handle(work) }()

	_, err := c2.Write([]byte("GET /rpc HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)

	c2.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 256)
	n, err := c2.Read(buf)
	require.NoError(t, err)
	resp := string(buf[:n])
	require.Contains(t, resp, "HTTP/1.1 403 Forbidden")
	require.Contains(t, resp, "text/xml, application/x-frpc")
	require.NoError(t, <-done)
	c2.Close()
}
