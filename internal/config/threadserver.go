package config

import "strings"

// MainConfig is the typed view over the `main.*` keys: at least one Handler
// and one Listener name, plus logging/pidfile options.
type MainConfig struct {
	HandlerNames []string
	ListenerNames []string
	PidFile      string
	LogFile      string
	LogMask      string
	LogBufSize   int
	NoDetach     bool
}

// Main extracts MainConfig, applying its defaults (LogMask "I3W2E2F1",
// LogBufSize 0).
func (c *Config) Main() MainConfig {
	return MainConfig{
		HandlerNames: c.StringList("main.Handler"),
		ListenerNames: c.StringList("main.Listener"),
		PidFile:      c.StringDefault("main.PidFile", ""),
		LogFile:      c.StringDefault("main.LogFile", ""),
		LogMask:      c.StringDefault("main.LogMask", "I3W2E2F1"),
		LogBufSize:   c.IntDefault("main.LogBufSize", 0),
		NoDetach:     c.BoolDefault("main.NoDetach", false),
	}
}

// HandlerConfig is the typed view over a `<h>.*` section: the descriptor
// name, worker count, module names, and the protocol-engine limits.
type HandlerConfig struct {
	Name           string
	Handler        string // <h>.Handler=<sofile>:<symbol>, looked up whole as a descriptor name
	WorkerCount    int
	ModuleNames    []string
	ReadTimeoutMs  int
	WriteTimeoutMs int
	MaxLineSize    int
	MaxRequestSize int
	HelpDirectory  string
}

// Handler extracts the HandlerConfig for section name.
func (c *Config) Handler(name string) HandlerConfig {
	return HandlerConfig{
		Name:           name,
		Handler:        c.StringDefault(name+".Handler", ""),
		WorkerCount:    c.IntDefault(name+".WorkerCount", 1),
		ModuleNames:    c.StringList(name + ".Module"),
		ReadTimeoutMs:  c.IntDefault(name+".ReadTimeout", 0),
		WriteTimeoutMs: c.IntDefault(name+".WriteTimeout", 0),
		MaxLineSize:    c.IntDefault(name+".MaxLineSize", 0),
		MaxRequestSize: c.IntDefault(name+".MaxRequestSize", 0),
		HelpDirectory:  c.StringDefault(name+".HelpDirectory", ""),
	}
}

// ListenerConfig is the typed view over a `<l>.*` section.
type ListenerConfig struct {
	Name       string
	Address    string
	Handler    string
	AllowFirst bool // Order=allow,deny vs deny,allow
	Allow      []string
	Deny       []string
}

// Listener extracts the ListenerConfig for section name.
func (c *Config) Listener(name string) ListenerConfig {
	order := c.StringDefault(name+".Order", "deny,allow")
	return ListenerConfig{
		Name:       name,
		Address:    c.StringDefault(name+".Address", ""),
		Handler:    c.StringDefault(name+".Handler", ""),
		AllowFirst: strings.EqualFold(order, "allow,deny"),
		Allow:      c.StringList(name + ".Allow"),
		Deny:       c.StringList(name + ".Deny"),
	}
}
