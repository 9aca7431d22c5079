// Package supervise implements daemonization and a guard-process
// supervision loop that respawns the worker after an abnormal exit. Go
// cannot safely fork() a multi-threaded runtime, so a traditional
// double-fork detach is rendered as a single re-exec of the current binary
// with os/exec and syscall.SysProcAttr.Setsid, which gives the same
// detach-from-controlling-terminal result as fork+setsid without the fork.
// Lifecycle shaped as a boot sequence generalized from "run once" to "run,
// watch, respawn".
package supervise

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/slicingmelon/threadserver/internal/gslog"
)

// roleEnv carries which re-exec generation the current process is across
// the self re-exec — a fork would otherwise communicate this implicitly via
// parent/child return values.
const roleEnv = "THREADSERVER_ROLE"

const (
	// RoleSupervisor marks the detached guard process spawned by Daemonize.
	RoleSupervisor = "supervisor"
	// RoleWorker marks the final process that actually boots the server.
	RoleWorker = "worker"
)

// Role returns the current process's re-exec role, the empty string for the
// original, un-re-exec'd invocation from the user's shell.
func Role() string { return os.Getenv(roleEnv) }

// envWithoutRole copies the current environment with any inherited roleEnv
// entry stripped, so a re-exec's explicit role setting is never shadowed by
// a duplicate earlier entry of the same key.
func envWithoutRole() []string {
	env := os.Environ()
	out := make([]string, 0, len(env))
	prefix := roleEnv + "="
	for _, e := range env {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			continue
		}
		out = append(out, e)
	}
	return out
}

// IsWorker reports whether the current process is the final worker spawned
// by a supervision loop (directly, under --nodetach, or via Daemonize).
func IsWorker() bool { return Role() == RoleWorker }

// IsSupervisor reports whether the current process is the detached guard
// process Daemonize spawned.
func IsSupervisor() bool { return Role() == RoleSupervisor }

// Daemonize detaches from the controlling terminal: it re-execs the
// current binary with the same arguments in a new session
// (syscall.Setsid), stdio redirected to /dev/null, and the working
// directory changed to "/" — a setsid+chdir+umask+redirect-stdio sequence,
// minus the fork a multi-threaded Go runtime cannot do safely. The spawned
// process carries RoleSupervisor and is expected to call Loop itself;
// Daemonize does not wait for it, so the original process can return
// immediately and let the calling shell regain its prompt, while the
// detached supervisor runs on in the background.
func Daemonize(args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("supervise: resolve executable: %w", err)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("supervise: open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	cmd := exec.Command(exe, args[1:]...)
	cmd.Env = append(envWithoutRole(), roleEnv+"="+RoleSupervisor)
	cmd.Dir = "/"
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	syscall.Umask(0)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("supervise: start supervisor: %w", err)
	}
	return cmd.Process.Release()
}

// Loop is the guard process: it repeatedly spawns a worker child
// (RoleWorker), wait()s on it, and decides whether to respawn. It
// forwards SIGINT/SIGTERM/SIGHUP/SIGUSR1 to the current worker's pid;
// SIGHUP/SIGUSR1 additionally trigger this process's own log reopen. Loop
// returns the exit code the process should terminate with.
//
// attached controls whether the worker inherits this process's stdio — true
// under --nodetach (still attached to the invoking terminal, so a liveness
// bar is also drawn there), false once Daemonize has already redirected
// this process's own stdio to /dev/null.
func Loop(args []string, log *gslog.Logger, attached bool) int {
	exe, err := os.Executable()
	if err != nil {
		log.Fatal().Msgf("supervise: resolve executable: %v", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)
	defer signal.Stop(sigCh)

	var bar *pb.ProgressBar
	if attached {
		bar = pb.New(0)
		bar.SetTemplateString(`{{ green "worker alive" }} elapsed: {{ etime . }}`)
		bar.Start()
		defer bar.Finish()
	}

	for {
		start := time.Now()
		child, err := spawnWorker(exe, args, attached)
		if err != nil {
			log.Error().Msgf("supervise: spawn worker: %v", err)
			return 1
		}
		log.Info().Msgf("supervise: worker pid %d started", child.Process.Pid)

		done := make(chan error, 1)
		go func() { done <- child.Wait() }()

		exit, respawn := waitOne(child, done, sigCh, log, bar)
		log.Warning().Msgf("supervise: worker pid %d exited after %s", child.Process.Pid, time.Since(start))
		if !respawn {
			return exit
		}
	}
}

// waitOne blocks until the worker exits or a forwarded signal tells the
// supervisor to stop waiting, forwarding signals to the child in the
// meantime. It returns the exit code to use if the loop stops, and whether
// the caller should respawn a fresh worker.
func waitOne(child *exec.Cmd, done <-chan error, sigCh <-chan os.Signal, log *gslog.Logger, bar *pb.ProgressBar) (int, bool) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			return classifyExit(err, log)

		case sig := <-sigCh:
			forwardSignal(child, sig, log)
			if sig == syscall.SIGINT || sig == syscall.SIGTERM {
				// Wait for the forwarded signal to actually terminate the
				// worker rather than racing ahead of it. This is a
				// supervisor-initiated shutdown regardless of what
				// classifyExit thinks about respawning.
				err := <-done
				exitCode, _ := classifyExit(err, log)
				return exitCode, false
			}

		case <-ticker.C:
			if bar != nil {
				bar.Increment()
			}
		}
	}
}

// forwardSignal relays SIGINT/SIGTERM/SIGHUP/SIGUSR1 received by the
// supervisor to the current worker pid; SIGHUP/SIGUSR1 additionally reopen
// this process's own log.
func forwardSignal(child *exec.Cmd, sig os.Signal, log *gslog.Logger) {
	if err := child.Process.Signal(sig); err != nil {
		log.Warning().Msgf("supervise: forward %s to pid %d: %v", sig, child.Process.Pid, err)
	}
	if sig == syscall.SIGHUP || sig == syscall.SIGUSR1 {
		if err := log.Reopen(); err != nil {
			log.Warning().Msgf("supervise: log reopen: %v", err)
		}
	}
}

// classifyExit applies the respawn rule: respawn unless the child died of
// SIGKILL/SIGTERM/SIGINT or exited normally.
func classifyExit(waitErr error, log *gslog.Logger) (exitCode int, respawn bool) {
	if waitErr == nil {
		return 0, false
	}
	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		log.Error().Msgf("supervise: wait: %v", waitErr)
		return 1, true
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return exitErr.ExitCode(), true
	}
	if status.Signaled() {
		sig := status.Signal()
		if sig == syscall.SIGKILL || sig == syscall.SIGTERM || sig == syscall.SIGINT {
			return 128 + int(sig), false
		}
		return 1, true
	}
	return status.ExitStatus(), false
}

// spawnWorker launches the worker child with RoleWorker set. Under
// attached (--nodetach), the worker inherits this process's stdio so
// foreground operators still see its output directly.
func spawnWorker(exe string, args []string, attached bool) (*exec.Cmd, error) {
	cmd := exec.Command(exe, args[1:]...)
	cmd.Env = append(envWithoutRole(), roleEnv+"="+RoleWorker)
	if attached {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("supervise: start worker: %w", err)
	}
	return cmd, nil
}
