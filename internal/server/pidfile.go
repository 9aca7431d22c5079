package server

import (
	"fmt"
	"os"
	"strconv"

	"github.com/slicingmelon/threadserver/internal/gserr"
)

// checkPidFileWritable opens/creates the pidfile to verify writability,
// without writing a PID. It runs inside Boot, in the final worker process;
// no writability check is made before daemonizing.
func checkPidFileWritable(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return gserr.Wrap("pidfile", 0, fmt.Errorf("open %s: %w", path, err))
	}
	return f.Close()
}

// writePidFile truncates path and writes the current process's decimal PID
// plus a trailing newline, truncated and rewritten on each boot.
func writePidFile(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return gserr.Wrap("pidfile", 0, fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	_, err = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	return err
}
