package frpcengine

import (
	"net"
	"sync"

	"github.com/slicingmelon/threadserver/internal/dispatch"
	"github.com/slicingmelon/threadserver/internal/plugin"
)

// DescriptorName is the compiled-in descriptor name a config's
// <h>.Handler=builtin:frpc value resolves to.
const DescriptorName = "builtin:frpc"

func init() {
	plugin.RegisterHandler(plugin.HandlerDescriptor{
		ABIVersion: plugin.ABIVersion,
		Name:       DescriptorName,
		New: func(srv plugin.ServerFacade, name string, workers int) (*dispatch.Handler, error) {
			h, registry := NewHandler(name, workers, func() Codec { return noopCodec{} })
			registriesMu.Lock()
			registries[name] = registry
			registriesMu.Unlock()
			return h, nil
		},
	})
}

var (
	registriesMu sync.Mutex
	registries   = map[string]*MethodRegistry{}
)

// RegistryFor returns the MethodRegistry built for a named FRPC handler, so
// a <h>.Module=... descriptor can register its RPC methods onto it at boot
// (mirrors internal/httpengine.RegistryFor).
func RegistryFor(name string) (*MethodRegistry, bool) {
	registriesMu.Lock()
	defer registriesMu.Unlock()
	r, ok := registries[name]
	return r, ok
}

// NewHandler builds an FRPC Handler and its MethodRegistry directly,
// bypassing the plugin descriptor lookup — used by tests and by any caller
// that already has a concrete Codec to inject.
func NewHandler(name string, workers int, newCodec func() Codec) (*dispatch.Handler, *MethodRegistry) {
	registry := NewMethodRegistry()
	h := dispatch.NewHandler(name, workers, func() dispatch.Worker {
		return NewWorker(registry, newCodec)
	})
	return h, registry
}

// noopCodec is the descriptor's placeholder Codec until a real wire-codec
// dependency is wired in — the FRPC codec itself is an external
// collaborator, out of scope here. It closes the connection without
// serving, so a misconfigured builtin:frpc handler fails loudly in
// integration rather than hanging a worker forever.
type noopCodec struct{}

func (noopCodec) Serve(conn net.Conn, _ *MethodRegistry, _, _ Header) error {
	return conn.Close()
}
