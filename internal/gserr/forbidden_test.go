package gserr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestForbiddenLimiterSuppressesWithinWindow(t *testing.T) {
	l := NewForbiddenLimiter(64*1024, time.Hour)

	require.True(t, l.ShouldLog("1.2.3.4"))
	require.False(t, l.ShouldLog("1.2.3.4"))
	require.False(t, l.ShouldLog("1.2.3.4"))
}

func TestForbiddenLimiterTracksKeysIndependently(t *testing.T) {
	l := NewForbiddenLimiter(64*1024, time.Hour)

	require.True(t, l.ShouldLog("1.2.3.4"))
	require.True(t, l.ShouldLog("5.6.7.8"))
}

func TestForbiddenLimiterLogsAgainAfterWindowElapses(t *testing.T) {
	l := NewForbiddenLimiter(64*1024, 10*time.Millisecond)

	require.True(t, l.ShouldLog("1.2.3.4"))
	time.Sleep(25 * time.Millisecond)
	require.True(t, l.ShouldLog("1.2.3.4"))
}
