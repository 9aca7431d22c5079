// Package listener implements Listener: bind, accept loop, ACL evaluation,
// and enqueue onto the bound handler. One goroutine per listener runs a
// net.Listen + Accept loop, dispatching each accepted connection to
// evaluate its ACL verdict and hand it off to a Handler.
package listener

import (
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/slicingmelon/threadserver/internal/dispatch"
	"github.com/slicingmelon/threadserver/internal/gserr"
	"github.com/slicingmelon/threadserver/internal/gslog"
	"github.com/slicingmelon/threadserver/internal/netacl"
)

// forbiddenLogWindow bounds how often a repeat-offending source address
// produces a new "forbidden" log line.
const forbiddenLogWindow = 10 * time.Second

// forbiddenLimiter is shared across every Listener in the process: the
// cache's value is per-source-address, not per-listener, so one shared
// instance is the correct scope.
var forbiddenLimiter = gserr.NewForbiddenLimiter(1<<20, forbiddenLogWindow)

// EnqueueHandler is the subset of dispatch.Handler the Listener needs: just
// enough to hand off an accepted work envelope.
type EnqueueHandler interface {
	Name() string
	Enqueue(work *dispatch.SocketWork)
}

// Listener binds one TCP endpoint and feeds every accepted connection,
// wrapped in a dispatch.SocketWork, to its bound Handler.
type Listener struct {
	name        string
	bindAddr    string // host:port, "" host = wildcard
	handler     EnqueueHandler
	policy      *netacl.Policy

	mu       sync.Mutex
	ln       net.Listener
	stopped  bool
	doneCh   chan struct{}
}

// New constructs a Listener and performs a pre-flight bind test, so
// address-in-use/permission errors surface before the server starts
// accepting on any listener.
func New(name, bindAddr string, handler EnqueueHandler, policy *netacl.Policy) (*Listener, error) {
	ln, err := net.Listen("tcp4", bindAddr)
	if err != nil {
		return nil, gserr.Wrap("listener."+name, 0, fmt.Errorf("bind %s: %w", bindAddr, err))
	}
	// Pre-flight only: close immediately, Run() rebinds. SO_REUSEADDR
	// (set by net.Listen on all platforms threadserver targets) makes the
	// rebind race-free in practice for the single-process boot sequence.
	if err := ln.Close(); err != nil {
		return nil, gserr.Wrap("listener."+name, 0, err)
	}
	return &Listener{
		name:     name,
		bindAddr: bindAddr,
		handler:  handler,
		policy:   policy,
		doneCh:   make(chan struct{}),
	}, nil
}

func (l *Listener) Name() string { return l.name }

// Run binds the listening socket and accepts connections until Stop is
// called. It blocks the calling goroutine; the server root runs one Run
// per listener in its own goroutine.
func (l *Listener) Run() error {
	ln, err := net.Listen("tcp4", l.bindAddr)
	if err != nil {
		return gserr.Wrap("listener."+l.name, 0, fmt.Errorf("bind %s: %w", l.bindAddr, err))
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		ln.Close()
		return nil
	}
	l.ln = ln
	l.mu.Unlock()

	defer close(l.doneCh)

	for {
		conn, err := ln.Accept()
		if err != nil {
			l.mu.Lock()
			stopped := l.stopped
			l.mu.Unlock()
			if stopped {
				// Cancellation during shutdown: expected, not an error.
				return nil
			}
			gslog.Default().Error().Msgf("listener %s: accept: %v", l.name, err)
			continue
		}
		go l.dispatch(conn)
	}
}

func (l *Listener) dispatch(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	source := remote
	forbidden := true
	if addrPort, err := netip.ParseAddrPort(remote); err == nil {
		source = addrPort.Addr().String()
		if addrPort.Addr().Is4() {
			forbidden = l.policy.Evaluate(addrPort.Addr())
		}
	}
	// Non-IPv4 peers (or an unparseable remote address) are marked
	// forbidden unconditionally.

	if forbidden && forbiddenLimiter.ShouldLog(source) {
		gslog.Default().Warning().Msgf("listener %s: forbidden connection from %s", l.name, remote)
	}

	l.handler.Enqueue(dispatch.NewSocketWork(conn, l, forbidden))
}

// Stop cancels the pending accept and closes the listening socket, then
// waits for the accept loop goroutine to return.
func (l *Listener) Stop() {
	l.mu.Lock()
	l.stopped = true
	ln := l.ln
	l.mu.Unlock()

	if ln != nil {
		ln.Close()
		<-l.doneCh
	}
}
