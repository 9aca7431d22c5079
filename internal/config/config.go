// Package config loads threadserver's INI-style configuration, keyed
// "section.Key=value" with multi-valued keys permitted. A typed
// get/getVector/getBool accessor set sits over the parsed gopkg.in/ini.v1
// file, with ValueWithShadows providing the repeated-key lookups.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Config wraps a parsed INI file with typed accessors over its keys.
type Config struct {
	file *ini.File
}

// Load reads and parses path. AllowShadows is required for repeated keys to
// survive — ini.v1 otherwise keeps only the last occurrence of a duplicate
// key.
func Load(path string) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	return &Config{file: file}, nil
}

func (c *Config) section(key string) (*ini.Section, string) {
	section, name, found := strings.Cut(key, ".")
	if !found {
		return c.file.Section(""), section
	}
	return c.file.Section(section), name
}

// String returns key's first value, or an error if key is absent.
func (c *Config) String(key string) (string, error) {
	sec, name := c.section(key)
	k, err := sec.GetKey(name)
	if err != nil {
		return "", fmt.Errorf("config: variable %s not found", key)
	}
	return k.String(), nil
}

// StringDefault returns key's first value, or defaultValue if key is
// absent.
func (c *Config) StringDefault(key, defaultValue string) string {
	v, err := c.String(key)
	if err != nil {
		return defaultValue
	}
	return v
}

// Int parses key's first value as a decimal integer.
func (c *Config) Int(key string) (int, error) {
	v, err := c.String(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

// IntDefault is the defaulted form of Int.
func (c *Config) IntDefault(key string, defaultValue int) int {
	n, err := c.Int(key)
	if err != nil {
		return defaultValue
	}
	return n
}

// Bool applies a fixed literal table: true/on/1 and false/off/0, anything
// else is an error.
func (c *Config) Bool(key string) (bool, error) {
	v, err := c.String(key)
	if err != nil {
		return false, err
	}
	return parseBool(key, v)
}

// BoolDefault is the defaulted form of Bool.
func (c *Config) BoolDefault(key string, defaultValue bool) bool {
	b, err := c.Bool(key)
	if err != nil {
		return defaultValue
	}
	return b
}

func parseBool(key, value string) (bool, error) {
	switch value {
	case "true", "on", "1":
		return true, nil
	case "false", "off", "0":
		return false, nil
	default:
		return false, fmt.Errorf("config: invalid literal %q for boolean variable %s", value, key)
	}
}

// StringList returns every value of a repeated key, in file order, backed
// by ini.v1's ValueWithShadows.
func (c *Config) StringList(key string) []string {
	sec, name := c.section(key)
	k, err := sec.GetKey(name)
	if err != nil {
		return nil
	}
	return k.ValueWithShadows()
}
