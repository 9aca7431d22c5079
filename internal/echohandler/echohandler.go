// Package echohandler is a minimal handler used to exercise the dispatch
// fabric (listener, queue, worker pool) independent of the HTTP or FRPC
// protocol engines. Reads until a blank-line terminator, then answers a
// fixed "Hello World!" response and closes.
package echohandler

import (
	"bufio"

	"github.com/slicingmelon/threadserver/internal/dispatch"
	"github.com/slicingmelon/threadserver/internal/gslog"
	"github.com/slicingmelon/threadserver/internal/plugin"
)

// DescriptorName is the compiled-in descriptor name a config's
// <h>.Handler=builtin:echo value resolves to.
const DescriptorName = "builtin:echo"

const response = "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nConnection: close\r\n\r\nHello World!\r\n"

func init() {
	plugin.RegisterHandler(plugin.HandlerDescriptor{
		ABIVersion: plugin.ABIVersion,
		Name:       DescriptorName,
		New: func(srv plugin.ServerFacade, name string, workers int) (*dispatch.Handler, error) {
			return NewHandler(name, workers), nil
		},
	})
}

// NewHandler builds the dummy/echo Handler directly, for tests and for any
// caller that already knows it wants the built-in echo engine.
func NewHandler(name string, workers int) *dispatch.Handler {
	return dispatch.NewHandler(name, workers, func() dispatch.Worker { return &worker{} })
}

type worker struct{ log *gslog.Logger }

func (w *worker) OnStart() { w.log = gslog.Default() }
func (w *worker) OnStop()  {}

func (w *worker) Handle(work *dispatch.SocketWork) error {
	if work.Forbidden {
		_, err := work.Conn.Write([]byte("HTTP/1.0 403 Forbidden\r\n\r\n"))
		return err
	}

	br := bufio.NewReader(work.Conn)
	if _, err := br.ReadString('\n'); err != nil {
		return dispatch.ErrPeerClosed
	}
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return dispatch.ErrPeerClosed
		}
		if line == "\r\n" || line == "\n" {
			break
		}
	}

	_, err := work.Conn.Write([]byte(response))
	return err
}
