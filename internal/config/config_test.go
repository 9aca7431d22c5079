package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) *Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "threadserver.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	c, err := Load(path)
	require.NoError(t, err)
	return c
}

func TestMainDefaultsAndRepeatedKeys(t *testing.T) {
	c := writeTempConfig(t, `
[main]
Handler = h1
Handler = h2
Listener = l1
PidFile = /tmp/threadserver.pid
`)
	m := c.Main()
	require.Equal(t, []string{"h1", "h2"}, m.HandlerNames)
	require.Equal(t, []string{"l1"}, m.ListenerNames)
	require.Equal(t, "/tmp/threadserver.pid", m.PidFile)
	require.Equal(t, "I3W2E2F1", m.LogMask)
	require.Equal(t, 0, m.LogBufSize)
}

func TestHandlerSectionTypedAccessors(t *testing.T) {
	c := writeTempConfig(t, `
[http1]
Handler = builtin:http1
WorkerCount = 8
Module = mod1
Module = mod2
ReadTimeout = 5000
`)
	h := c.Handler("http1")
	require.Equal(t, "builtin:http1", h.Handler)
	require.Equal(t, 8, h.WorkerCount)
	require.Equal(t, []string{"mod1", "mod2"}, h.ModuleNames)
	require.Equal(t, 5000, h.ReadTimeoutMs)
}

func TestListenerSectionOrderAndCIDRs(t *testing.T) {
	c := writeTempConfig(t, `
[l1]
Address = *:8080
Handler = http1
Order = allow,deny
Allow = 127.0.0.0/8
Deny = 127.0.0.1/32
`)
	l := c.Listener("l1")
	require.Equal(t, "*:8080", l.Address)
	require.True(t, l.AllowFirst)
	require.Equal(t, []string{"127.0.0.0/8"}, l.Allow)
	require.Equal(t, []string{"127.0.0.1/32"}, l.Deny)
}

func TestBoolLiteralTable(t *testing.T) {
	c := writeTempConfig(t, `
[main]
NoDetach = on
`)
	require.True(t, c.BoolDefault("main.NoDetach", false))

	_, err := c.Bool("main.Missing")
	require.Error(t, err)
}

func TestStringMissingKeyIsError(t *testing.T) {
	c := writeTempConfig(t, `[main]`)
	_, err := c.String("main.Missing")
	require.Error(t, err)
}
