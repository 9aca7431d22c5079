// Command threadserver boots a pluggable multi-protocol TCP front-end:
// load config, parse flags, then either run in the foreground (--nodetach)
// or daemonize under a respawning supervisor. A thin wiring layer that
// logs and exits 1 on any boot failure.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/slicingmelon/threadserver/internal/cli"
	"github.com/slicingmelon/threadserver/internal/config"
	"github.com/slicingmelon/threadserver/internal/gslog"
	"github.com/slicingmelon/threadserver/internal/server"
	"github.com/slicingmelon/threadserver/internal/supervise"

	_ "github.com/slicingmelon/threadserver/internal/echohandler"
	_ "github.com/slicingmelon/threadserver/internal/frpcengine"
	_ "github.com/slicingmelon/threadserver/internal/httpengine"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	// A re-exec'd worker or supervisor generation bypasses the detach
	// decision below — it was launched by supervise.Daemonize/Loop with the
	// original arguments already baked into argv. The worker re-parses those
	// arguments only to find the config file.
	switch supervise.Role() {
	case supervise.RoleWorker:
		return runWorker(args)
	case supervise.RoleSupervisor:
		return runSupervisor(args)
	}

	opts, err := cli.ParseArgs(args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			// --help exits 1, unlike Go's flag package default.
			return 1
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if opts.NoDetach {
		return supervise.Loop(args, gslog.Default(), true)
	}

	if err := supervise.Daemonize(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// runSupervisor is the detached guard process Daemonize spawned: it just
// enters the respawn loop, no longer attached to the invoking terminal.
func runSupervisor(args []string) int {
	return supervise.Loop(args, gslog.Default(), false)
}

// runWorker is the final process that actually boots and serves, then
// blocks in Run until a shutdown signal.
func runWorker(args []string) int {
	opts, err := cli.ParseArgs(args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	srv := server.New(cfg)
	if err := srv.Boot(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	srv.Run()
	return 0
}
