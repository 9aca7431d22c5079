// Package cli parses threadserver's command line in a declarative
// multiFlag style: a single table of name/usage/target-pointer/default
// drives both flag.Usage and flag registration, instead of one flag.*Var
// call per option.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Options is the parsed command line.
type Options struct {
	ConfigFile string
	NoDetach   bool
}

type multiFlag struct {
	name   string
	usage  string
	value  any
	defVal any
}

// ParseArgs parses args (normally os.Args[1:]) into Options. Unknown flags
// are silently dropped before parsing rather than treated as an error —
// flag.ContinueOnError only changes how a parse error is delivered, not
// whether one occurs, so a genuinely unrecognized flag has to be filtered
// out up front to pass through cleanly. Other parse errors (missing
// argument, bad type) still reach the caller.
func ParseArgs(args []string) (*Options, error) {
	opts := &Options{}
	fs := flag.NewFlagSet("threadserver", flag.ContinueOnError)

	flags := []multiFlag{
		{name: "config,f", usage: "path to the config file", value: &opts.ConfigFile},
		{name: "nodetach,d", usage: "run in the foreground instead of daemonizing", value: &opts.NoDetach, defVal: false},
	}

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "threadserver\n\nUsage:\n")
		for _, f := range flags {
			fmt.Fprintf(os.Stderr, "  -%s\n", f.name)
			fmt.Fprintf(os.Stderr, "        %s\n", f.usage)
		}
	}

	known := map[string]bool{"h": true, "help": true}
	for _, f := range flags {
		for _, name := range splitNames(f.name) {
			known[name] = true
		}
	}

	for _, f := range flags {
		for _, name := range splitNames(f.name) {
			switch v := f.value.(type) {
			case *string:
				def, _ := f.defVal.(string)
				fs.StringVar(v, name, def, f.usage)
			case *bool:
				def, _ := f.defVal.(bool)
				fs.BoolVar(v, name, def, f.usage)
			}
		}
	}

	if err := fs.Parse(dropUnknownFlags(args, known)); err != nil {
		return nil, err
	}

	return opts, nil
}

// dropUnknownFlags strips any flag token not present in known, along with a
// following value token if the flag wasn't given in -name=value form and
// the next token isn't itself flag-shaped. Used so an unrecognized option
// passes through ParseArgs without becoming a fatal error.
func dropUnknownFlags(args []string, known map[string]bool) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			out = append(out, args[i:]...)
			break
		}
		name, attached, isFlag := flagName(a)
		if !isFlag || known[name] {
			out = append(out, a)
			continue
		}
		if !attached && i+1 < len(args) && !looksLikeFlag(args[i+1]) {
			i++
		}
	}
	return out
}

// flagName splits a "-name", "--name", or "-name=value" token into its flag
// name. isFlag is false for "-" alone, "--" alone, or a non-flag argument.
func flagName(s string) (name string, attached, isFlag bool) {
	if len(s) < 2 || s[0] != '-' {
		return "", false, false
	}
	body := strings.TrimPrefix(strings.TrimPrefix(s, "--"), "-")
	if body == "" {
		return "", false, false
	}
	if eq := strings.IndexByte(body, '='); eq >= 0 {
		return body[:eq], true, true
	}
	return body, false, true
}

func looksLikeFlag(s string) bool {
	return len(s) > 0 && s[0] == '-'
}

func splitNames(s string) []string {
	var names []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				names = append(names, s[start:i])
			}
			start = i + 1
		}
	}
	return names
}
