package supervise

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slicingmelon/threadserver/internal/gslog"
)

func TestRoleEmptyByDefault(t *testing.T) {
	os.Unsetenv(roleEnv)
	require.Equal(t, "", Role())
	require.False(t, IsWorker())
	require.False(t, IsSupervisor())
}

func TestRoleReflectsEnv(t *testing.T) {
	t.Setenv(roleEnv, RoleWorker)
	require.True(t, IsWorker())
	require.False(t, IsSupervisor())

	t.Setenv(roleEnv, RoleSupervisor)
	require.False(t, IsWorker())
	require.True(t, IsSupervisor())
}

func TestEnvWithoutRoleStripsDuplicates(t *testing.T) {
	t.Setenv(roleEnv, RoleSupervisor)
	env := envWithoutRole()
	for _, e := range env {
		require.NotContains(t, e, roleEnv+"=")
	}
}

// runShell exercises classifyExit against a real *exec.ExitError so the
// syscall.WaitStatus type assertion is tested against the concrete value
// Go's exec package actually produces, not a hand-built stand-in.
func runShell(t *testing.T, script string) error {
	t.Helper()
	cmd := exec.Command("/bin/sh", "-c", script)
	return cmd.Run()
}

func TestClassifyExitNormalExitDoesNotRespawn(t *testing.T) {
	log := gslog.New(nullWriter{})
	err := runShell(t, "exit 0")
	code, respawn := classifyExit(err, log)
	require.Equal(t, 0, code)
	require.False(t, respawn)
}

func TestClassifyExitNonZeroExitDoesNotRespawn(t *testing.T) {
	log := gslog.New(nullWriter{})
	err := runShell(t, "exit 7")
	code, respawn := classifyExit(err, log)
	require.Equal(t, 7, code)
	require.False(t, respawn)
}

func TestClassifyExitSigTermDoesNotRespawn(t *testing.T) {
	log := gslog.New(nullWriter{})
	err := runShell(t, "kill -TERM $$; sleep 1")
	_, respawn := classifyExit(err, log)
	require.False(t, respawn)
}

func TestClassifyExitSigUSR1Respawns(t *testing.T) {
	log := gslog.New(nullWriter{})
	err := runShell(t, "kill -USR1 $$; sleep 1")
	_, respawn := classifyExit(err, log)
	require.True(t, respawn)
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }
