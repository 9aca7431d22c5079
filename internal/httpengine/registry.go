package httpengine

import "regexp"

// MethodFunc is the raw method shape offering full control over request and
// response; other method variants adapt down to this one.
type MethodFunc func(req *Request, resp *Response) error

// methodEntry pairs a compiled route with its method, in the order it was
// registered — routing is order-sensitive.
type methodEntry struct {
	pattern *regexp.Regexp
	fn      MethodFunc
}

// Registry is an ordered method table: routing walks entries in
// registration order and the first entry whose compiled regex matches the
// whole uri wins.
type Registry struct {
	entries []methodEntry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry { return &Registry{} }

// Register compiles pattern and appends it to the registry. Patterns are
// anchored to match the whole URI.
func (r *Registry) Register(pattern string, fn MethodFunc) error {
	re, err := regexp.Compile(anchor(pattern))
	if err != nil {
		return err
	}
	r.entries = append(r.entries, methodEntry{pattern: re, fn: fn})
	return nil
}

func anchor(pattern string) string {
	if len(pattern) == 0 {
		return "^$"
	}
	out := pattern
	if out[0] != '^' {
		out = "^" + out
	}
	if out[len(out)-1] != '$' {
		out = out + "$"
	}
	return out
}

// Match returns the first registered entry whose pattern matches uri, along
// with its capture groups (group 0 excluded).
func (r *Registry) Match(uri string) (MethodFunc, []string, bool) {
	for _, e := range r.entries {
		m := e.pattern.FindStringSubmatch(uri)
		if m != nil {
			return e.fn, m[1:], true
		}
	}
	return nil, nil, false
}

// Len reports how many methods are registered (diagnostics only).
func (r *Registry) Len() int { return len(r.entries) }
