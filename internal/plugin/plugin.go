// Package plugin is a compiled-in handler/module registry: an interface
// boundary plus a version tag standing in for dlopen/dlsym-by-name loading.
// Handlers and modules register a descriptor at package-init time; the
// server root looks descriptors up by the name the config file names them
// with, instead of resolving a shared-object path at runtime.
package plugin

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/slicingmelon/threadserver/internal/dispatch"
	"github.com/slicingmelon/threadserver/internal/gslog"
)

// ABIVersion is the descriptor format every built-in and out-of-tree
// handler/module must declare. Bumped only when HandlerDescriptor or
// ModuleDescriptor's shape changes in a way old descriptors can't satisfy.
const ABIVersion = 1

// ServerFacade is the minimal slice of the server root a HandlerDescriptor's
// factory needs: enough to build a properly-named, properly-logged Handler
// without importing internal/server (which imports internal/plugin).
type ServerFacade interface {
	Logger() *gslog.Logger
}

// Module is a named unit of URI/RPC-method registrations layered onto an
// already-constructed Handler: no constructor/destructor pair, just a
// Register call at boot.
type Module interface {
	// Name identifies the module for boot-time logging and diagnostics.
	Name() string
}

// HandlerFactory builds a Handler bound to the given name with the given
// worker-pool size. Handlers receive a ServerFacade instead of reaching for
// globals, so the same descriptor can be constructed against a test harness.
type HandlerFactory func(srv ServerFacade, name string, workers int) (*dispatch.Handler, error)

// ModuleFactory attaches a Module's registrations to an already-constructed
// Handler, before its workers are started: modules register into a handler,
// they don't own one.
type ModuleFactory func(h *dispatch.Handler) (Module, error)

// HandlerDescriptor is the compiled-in stand-in for a dlopen-resolved
// handler shared object: a name, an ABI tag, and a factory.
type HandlerDescriptor struct {
	ABIVersion int
	Name       string
	New        HandlerFactory
}

// ModuleDescriptor is the compiled-in stand-in for a dlopen-resolved module
// shared object.
type ModuleDescriptor struct {
	ABIVersion int
	Name       string
	New        ModuleFactory
}

var (
	mu       sync.RWMutex
	handlers = map[string]HandlerDescriptor{}
	modules  = map[string]ModuleDescriptor{}
	buildIDs = map[string]uuid.UUID{}
)

// RegisterHandler registers a HandlerDescriptor under desc.Name. Intended to
// be called from a handler package's init() function — panics on a
// duplicate name or an unsupported ABIVersion, since both indicate a build-
// time wiring mistake rather than a runtime condition to recover from.
func RegisterHandler(desc HandlerDescriptor) {
	mu.Lock()
	defer mu.Unlock()
	if desc.ABIVersion != ABIVersion {
		panic(fmt.Sprintf("plugin: handler %q declares ABIVersion %d, want %d", desc.Name, desc.ABIVersion, ABIVersion))
	}
	if _, dup := handlers[desc.Name]; dup {
		panic(fmt.Sprintf("plugin: duplicate handler registration %q", desc.Name))
	}
	handlers[desc.Name] = desc
	buildIDs[desc.Name] = uuid.New()
}

// RegisterModule registers a ModuleDescriptor under desc.Name, with the same
// duplicate/ABI-mismatch panics as RegisterHandler.
func RegisterModule(desc ModuleDescriptor) {
	mu.Lock()
	defer mu.Unlock()
	if desc.ABIVersion != ABIVersion {
		panic(fmt.Sprintf("plugin: module %q declares ABIVersion %d, want %d", desc.Name, desc.ABIVersion, ABIVersion))
	}
	if _, dup := modules[desc.Name]; dup {
		panic(fmt.Sprintf("plugin: duplicate module registration %q", desc.Name))
	}
	modules[desc.Name] = desc
	buildIDs[desc.Name] = uuid.New()
}

// LookupHandler resolves the <h>.Handler=<name> config value to a
// registered descriptor. The whole value (e.g. "builtin:http1") is the
// lookup key and must equal a registered descriptor name; no shared object
// is loaded for its "so file" half.
func LookupHandler(name string) (HandlerDescriptor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := handlers[name]
	return d, ok
}

// LookupModule resolves a configured module name to its descriptor.
func LookupModule(name string) (ModuleDescriptor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := modules[name]
	return d, ok
}

// BuildID returns the boot-time-stable identifier minted for a registered
// handler or module, for surfacing in boot-summary diagnostics. The zero
// UUID is returned for an unregistered name.
func BuildID(name string) uuid.UUID {
	mu.RLock()
	defer mu.RUnlock()
	return buildIDs[name]
}

// RegisteredHandlerNames returns every registered handler name, for the
// boot-time summary table.
func RegisteredHandlerNames() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(handlers))
	for n := range handlers {
		names = append(names, n)
	}
	return names
}
