package gserr

import (
	"encoding/binary"
	"time"

	"github.com/VictoriaMetrics/fastcache"
)

// ForbiddenLimiter rate-limits repeated "forbidden connection" log lines per
// source address: a bounded off-heap cache keyed by address, remembering the
// last time a given source was logged, so a listener under sustained
// ACL-deny traffic from one address doesn't flood the log with identical
// lines.
type ForbiddenLimiter struct {
	cache  *fastcache.Cache
	window time.Duration
}

// NewForbiddenLimiter builds a limiter backed by a maxBytes fastcache,
// suppressing repeat log lines for the same key within window.
func NewForbiddenLimiter(maxBytes int, window time.Duration) *ForbiddenLimiter {
	return &ForbiddenLimiter{cache: fastcache.New(maxBytes), window: window}
}

// ShouldLog reports whether a forbidden-connection line for key should be
// emitted now: true the first time key is seen, or once window has elapsed
// since the last time ShouldLog returned true for it.
func (l *ForbiddenLimiter) ShouldLog(key string) bool {
	now := time.Now().UnixNano()
	k := []byte(key)

	if buf, ok := l.cache.HasGet(nil, k); ok && len(buf) == 8 {
		last := int64(binary.BigEndian.Uint64(buf))
		if time.Duration(now-last) < l.window {
			return false
		}
	}

	var v [8]byte
	binary.BigEndian.PutUint64(v[:], uint64(now))
	l.cache.Set(k, v[:])
	return true
}
