// Package server implements the server root: the boot sequence that wires
// config into registered handler/listener descriptors, and the shutdown
// sequence signal handling triggers. Shaped on an Initialize/Run split with
// fatal-on-error boot.
package server

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/slicingmelon/threadserver/internal/config"
	"github.com/slicingmelon/threadserver/internal/dispatch"
	"github.com/slicingmelon/threadserver/internal/gserr"
	"github.com/slicingmelon/threadserver/internal/gslog"
	"github.com/slicingmelon/threadserver/internal/listener"
	"github.com/slicingmelon/threadserver/internal/netacl"
	"github.com/slicingmelon/threadserver/internal/plugin"
)

// Server is the root object: the handler registry, the bound listeners, and
// the pidfile it owns for the life of the process.
type Server struct {
	cfg     *config.Config
	main    config.MainConfig
	log     *gslog.Logger
	facade  *facade

	mu        sync.Mutex
	handlers  map[string]*dispatch.Handler
	listeners []*listener.Listener

	runMu   sync.Mutex
	running bool
}

// New constructs a Server from an already-loaded Config. Boot performs
// every side-effecting step; New itself does none.
func New(cfg *config.Config) *Server {
	main := cfg.Main()
	return &Server{
		cfg:      cfg,
		main:     main,
		handlers: map[string]*dispatch.Handler{},
	}
}

// Boot brings the server fully up: logging, handlers, listeners, and the
// pidfile. Daemonization is the caller's responsibility via
// internal/supervise — Boot assumes it is already running as the final
// worker process by the time it's called.
func (s *Server) Boot() error {
	if err := s.configureLogging(); err != nil {
		return gserr.Wrap("boot", 0, err)
	}
	s.facade = &facade{log: s.log}

	if len(s.main.HandlerNames) == 0 {
		return gserr.Errorf("boot", "config: at least one main.Handler is required")
	}
	if len(s.main.ListenerNames) == 0 {
		return gserr.Errorf("boot", "config: at least one main.Listener is required")
	}

	if err := s.bootHandlers(); err != nil {
		return err
	}
	if err := s.bootListeners(); err != nil {
		return err
	}
	if err := checkPidFileWritable(s.main.PidFile); err != nil {
		return err
	}
	if err := writePidFile(s.main.PidFile); err != nil {
		return err
	}

	s.mu.Lock()
	for _, h := range s.handlers {
		h.CreateWorkers()
	}
	for _, l := range s.listeners {
		go func(l *listener.Listener) {
			if err := l.Run(); err != nil {
				s.log.Error().Msgf("listener %s: %v", l.Name(), err)
			}
		}(l)
	}
	s.mu.Unlock()

	s.runMu.Lock()
	s.running = true
	s.runMu.Unlock()

	return nil
}

func (s *Server) configureLogging() error {
	l := gslog.New(os.Stderr)
	if s.main.LogFile != "" {
		if err := l.SetOutputFile(s.main.LogFile); err != nil {
			return err
		}
	}
	if err := l.SetMask(s.main.LogMask); err != nil {
		return err
	}
	gslog.SetDefault(l)
	s.log = l
	return nil
}

// bootHandlers resolves and constructs each declared handler name's
// descriptor, then attaches its configured modules; duplicate names are
// fatal.
func (s *Server) bootHandlers() error {
	for _, name := range s.main.HandlerNames {
		if _, dup := s.handlers[name]; dup {
			return gserr.Errorf("boot", "duplicate handler name %q", name)
		}
		hcfg := s.cfg.Handler(name)
		desc, ok := plugin.LookupHandler(hcfg.Handler)
		if !ok {
			return gserr.Errorf("boot", "handler %q: no descriptor registered for %q", name, hcfg.Handler)
		}
		h, err := desc.New(s.facade, name, hcfg.WorkerCount)
		if err != nil {
			return gserr.Wrap("boot", 0, fmt.Errorf("handler %q: %w", name, err))
		}

		for _, modName := range hcfg.ModuleNames {
			mdesc, ok := plugin.LookupModule(modName)
			if !ok {
				return gserr.Errorf("boot", "handler %q: no module registered for %q", name, modName)
			}
			mod, err := mdesc.New(h)
			if err != nil {
				return gserr.Wrap("boot", 0, fmt.Errorf("handler %q: module %q: %w", name, modName, err))
			}
			s.log.Info().Msgf("handler %q: loaded module %q", name, mod.Name())
		}

		s.handlers[name] = h
	}
	return nil
}

// bootListeners constructs a Listener bound to its named handler,
// performing the pre-flight bind. An unknown handler name is fatal.
func (s *Server) bootListeners() error {
	for _, name := range s.main.ListenerNames {
		lcfg := s.cfg.Listener(name)
		h, ok := s.handlers[lcfg.Handler]
		if !ok {
			return gserr.Errorf("boot", "listener %q: unknown handler %q", name, lcfg.Handler)
		}
		policy, err := netacl.NewPolicy(lcfg.AllowFirst, lcfg.Allow, lcfg.Deny)
		if err != nil {
			return gserr.Wrap("boot", 0, fmt.Errorf("listener %q: %w", name, err))
		}
		l, err := listener.New(name, normalizeAddress(lcfg.Address), h, policy)
		if err != nil {
			return err
		}
		s.listeners = append(s.listeners, l)
	}
	return nil
}

// normalizeAddress translates a "*" wildcard host into the empty host
// net.Listen expects for a wildcard bind.
func normalizeAddress(addr string) string {
	if strings.HasPrefix(addr, "*:") {
		return addr[1:]
	}
	return addr
}

// Run blocks handling signals until SIGINT/SIGTERM triggers shutdown (stop
// all listeners, then destroy every handler's workers). SIGHUP/SIGUSR1 —
// forwarded here by internal/supervise, or received directly under
// --nodetach — reopen the log file without shutting down.
func (s *Server) Run() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGHUP, syscall.SIGUSR1:
			if err := s.ReopenLog(); err != nil {
				s.log.Error().Msgf("log reopen: %v", err)
			}
		default:
			signal.Stop(sigCh)
			s.Shutdown()
			return
		}
	}
}

// Shutdown stops every listener then every handler's worker pool. Safe to
// call once; a second call is a no-op.
func (s *Server) Shutdown() {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	s.running = false
	s.runMu.Unlock()

	s.mu.Lock()
	listeners := append([]*listener.Listener(nil), s.listeners...)
	handlers := make([]*dispatch.Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l.Stop()
	}
	for _, h := range handlers {
		h.DestroyWorkers()
	}
}

// ReopenLog implements the SIGHUP/SIGUSR1 log-reopen behavior, forwarded
// here from internal/supervise or from a direct signal handler when running
// with --nodetach.
func (s *Server) ReopenLog() error {
	if s.log == nil {
		return nil
	}
	return s.log.Reopen()
}
