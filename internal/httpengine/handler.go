package httpengine

import (
	"sync"

	"github.com/slicingmelon/threadserver/internal/dispatch"
	"github.com/slicingmelon/threadserver/internal/plugin"
)

// DescriptorName is the compiled-in descriptor name the config's
// <h>.Handler=builtin:http1 value resolves to. The "so file" half of the
// key is a no-op placeholder kept for config-format compatibility; this
// name is what plugin.LookupHandler actually keys on.
const DescriptorName = "builtin:http1"

func init() {
	plugin.RegisterHandler(plugin.HandlerDescriptor{
		ABIVersion: plugin.ABIVersion,
		Name:       DescriptorName,
		New:        newHandler,
	})
}

var (
	registriesMu sync.Mutex
	registries   = map[string]*Registry{}
)

func newHandler(srv plugin.ServerFacade, name string, workers int) (*dispatch.Handler, error) {
	h, registry := NewHandler(name, workers, DefaultLimits)

	registriesMu.Lock()
	registries[name] = registry
	registriesMu.Unlock()

	return h, nil
}

// RegistryFor returns the method Registry built for a named HTTP handler,
// so a <h>.Module=... descriptor can register its routes onto it at boot,
// after plugin.LookupHandler's factory has run but before CreateWorkers is
// called.
func RegistryFor(name string) (*Registry, bool) {
	registriesMu.Lock()
	defer registriesMu.Unlock()
	r, ok := registries[name]
	return r, ok
}

// NewHandler builds an HTTP Handler and its Registry directly, bypassing
// the plugin descriptor lookup — used by tests and by any caller that
// already knows it wants the built-in HTTP engine.
func NewHandler(name string, workers int, limits Limits) (*dispatch.Handler, *Registry) {
	registry := NewRegistry()
	h := dispatch.NewHandler(name, workers, func() dispatch.Worker {
		return NewWorker(registry, limits)
	})
	return h, registry
}
