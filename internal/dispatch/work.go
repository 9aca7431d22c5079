package dispatch

import (
	"net"

	"github.com/rs/xid"
)

// ListenerRef is the minimal back-reference a SocketWork needs into its
// owning Listener — just enough for a handler to log "which listener did
// this come in on" without dispatch importing the listener package (which
// in turn depends on dispatch, to avoid an import cycle).
type ListenerRef interface {
	Name() string
}

// SocketWork is the accept-time work envelope: it owns the accepted socket
// exclusively, carries a weak back-reference to its Listener, and the
// forbidden bit computed by ACL evaluation. Created at accept, closed
// exactly once the owning worker finishes handling it.
type SocketWork struct {
	ID        xid.ID // per-work correlation id, logged alongside the worker prefix
	Conn      net.Conn
	Listener  ListenerRef
	Forbidden bool
}

// NewSocketWork builds the envelope for a freshly accepted connection.
func NewSocketWork(conn net.Conn, listener ListenerRef, forbidden bool) *SocketWork {
	return &SocketWork{
		ID:        xid.New(),
		Conn:      conn,
		Listener:  listener,
		Forbidden: forbidden,
	}
}

// Close releases the socket. Safe to call once; the worker loop calls this
// exactly once after Worker.Handle returns, regardless of outcome.
func (w *SocketWork) Close() error {
	if w.Conn == nil {
		return nil
	}
	return w.Conn.Close()
}
