// Package params implements shared query/urlencoded-body parameter helpers:
// an ad hoc unescape rule, boolean coercion, and the foo[] indexed-accessor
// translation. Deliberately hand-rolled against the standard library rather
// than net/url: the unescape rule here preserves invalid %-sequences
// literally instead of erroring, which url.QueryUnescape does not do.
package params

import (
	"regexp"
	"strings"
)

// Values is a multi-map of decoded parameter names to their values in
// first-to-last appearance order — the shape query strings and urlencoded
// bodies both decode into.
type Values map[string][]string

// Get returns the first value for key, or "" if absent.
func (v Values) Get(key string) string {
	vals := v[key]
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// All returns every value for key in appearance order.
func (v Values) All(key string) []string { return v[key] }

// add appends a decoded value, preserving insertion order.
func (v Values) add(key, value string) { v[key] = append(v[key], value) }

// ParseQueryString decodes a `&`/`=`-delimited query or urlencoded-body
// string: split on `&`, split each token on the first `=` (a missing `=`
// yields an empty value), then unescape both halves.
func ParseQueryString(s string) Values {
	v := Values{}
	if s == "" {
		return v
	}
	for _, tok := range strings.Split(s, "&") {
		if tok == "" {
			continue
		}
		key, value, _ := strings.Cut(tok, "=")
		v.add(unescape(key), unescape(value))
	}
	return v
}

// Merge folds src into v, appending src's values after v's existing ones —
// used to combine query-string params with urlencoded/multipart body params
// under the same name.
func (v Values) Merge(src Values) {
	for k, vals := range src {
		v[k] = append(v[k], vals...)
	}
}

// unescape applies the exact rule: `+` becomes a space, `%HH` becomes the
// byte with hex value HH, and any `%` sequence that isn't followed by two
// valid hex digits is preserved literally rather than rejected.
func unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '+':
			b.WriteByte(' ')
		case '%':
			if i+2 < len(s) {
				hi, okHi := hexVal(s[i+1])
				lo, okLo := hexVal(s[i+2])
				if okHi && okLo {
					b.WriteByte(byte(hi<<4 | lo))
					i += 2
					continue
				}
			}
			b.WriteByte('%')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}

// ParseBool applies a fixed boolean coercion table. Any value outside the
// enumerated set is a parse-time error, not a silent false.
func ParseBool(s string) (bool, error) {
	switch s {
	case "1", "true", "on":
		return true, nil
	case "0", "false", "off":
		return false, nil
	default:
		return false, &CoercionError{Value: s}
	}
}

// CoercionError reports a boolean value outside the enumerated coercion set.
type CoercionError struct{ Value string }

func (e *CoercionError) Error() string {
	return "params: cannot coerce " + quote(e.Value) + " to bool"
}

func quote(s string) string { return "\"" + s + "\"" }

// indexedPattern builds the foo\[([0-9]+)\] translation for a foo[]
// accessor name.
func indexedPattern(base string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(base) + `\[([0-9]+)\]$`)
}

// Indexed bundles every parameter named `base[N]` into a map keyed by the
// captured index N.
func (v Values) Indexed(base string) map[string][]string {
	re := indexedPattern(base)
	out := map[string][]string{}
	for key, vals := range v {
		m := re.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		out[m[1]] = append(out[m[1]], vals...)
	}
	return out
}
