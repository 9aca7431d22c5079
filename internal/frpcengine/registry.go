// Package frpcengine is an FRPC handler engine. The wire codec itself
// (FastRPC/XML-RPC-style binary encoding) is an external collaborator, out
// of scope here; only the handler's adaptation contract — method registry,
// per-worker header pair, CodedError-to-fault translation, and the
// forbidden-connection framing — is specified and implemented here.
package frpcengine

import "github.com/slicingmelon/threadserver/internal/gserr"

// Header is the inbound/outbound RPC header pair provided per worker
// thread.
type Header map[string]string

// MethodFunc is a registered RPC method: receives its positional
// parameters and the header pair, returns a result tree or an error. An
// error that unwraps to a *gserr.CodedError becomes a typed RPC fault
// ({status: code, statusMessage: message}); any other error becomes
// {status: 500, statusMessage: err.Error()}.
type MethodFunc func(params []any, headersIn Header, headersOut Header) (any, error)

type methodEntry struct {
	fn        MethodFunc
	signature string
	help      string
}

// MethodRegistry is the per-handler table of registered RPC methods.
type MethodRegistry struct {
	methods map[string]methodEntry
}

// NewMethodRegistry returns an empty MethodRegistry.
func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{methods: map[string]methodEntry{}}
}

// RegisterMethod registers fn under name with an RPC signature string and
// help text, as sourced from a handler's HelpDirectory config.
func (r *MethodRegistry) RegisterMethod(name string, fn MethodFunc, signature, help string) {
	r.methods[name] = methodEntry{fn: fn, signature: signature, help: help}
}

// Fault is the RPC fault result: {status, statusMessage}.
type Fault struct {
	Status        int
	StatusMessage string
}

// Call invokes the method registered under name: a *gserr.CodedError
// becomes a typed Fault; any other error becomes a 500 Fault; an
// unregistered name is itself a 404 Fault.
func (r *MethodRegistry) Call(name string, params []any, headersIn, headersOut Header) (any, *Fault) {
	entry, ok := r.methods[name]
	if !ok {
		return nil, &Fault{Status: 404, StatusMessage: "method " + name + " not found"}
	}

	result, err := entry.fn(params, headersIn, headersOut)
	if err == nil {
		return result, nil
	}

	if coded, ok := gserr.AsCoded(err); ok {
		return nil, &Fault{Status: coded.Code, StatusMessage: coded.Message}
	}
	return nil, &Fault{Status: 500, StatusMessage: err.Error()}
}

// Help returns the registered help text for name, or "" if unregistered or
// no help directory was configured.
func (r *MethodRegistry) Help(name string) string {
	return r.methods[name].help
}
