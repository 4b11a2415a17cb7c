package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"

	defaultGlossaryFile = "glossary.json"
)

// Load reads and parses a tarim YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	cfg.BaseDir = filepath.Dir(abs)

	return &cfg, nil
}

// Validate checks that a Config has all required fields and valid values.
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("missing required field: version")
	}
	if len(cfg.Servers) == 0 {
		return fmt.Errorf("at least one server must be defined")
	}
	for name, srv := range cfg.Servers {
		if len(srv.Tools) == 0 {
			return fmt.Errorf("server %q: at least one tool must be listed", name)
		}
		if srv.Default != "deny" && srv.Default != "allow" {
			return fmt.Errorf("server %q: default must be \"deny\" or \"allow\", got %q", name, srv.Default)
		}
		switch srv.Glossary.Driver {
		case "", DriverJSON, DriverSQLite:
		default:
			return fmt.Errorf("server %q: unknown glossary driver %q", name, srv.Glossary.Driver)
		}
		for i, rule := range srv.Rules {
			if rule.Tool == "" {
				return fmt.Errorf("server %q: rule %d: missing required field: tool", name, i)
			}
		}
	}
	return nil
}

// ValidateTools reports the first tool named by a server that is not in known.
func ValidateTools(cfg *Config, known []string) error {
	for name, srv := range cfg.Servers {
		for _, tool := range srv.Tools {
			if !slices.Contains(known, tool) {
				return fmt.Errorf("server %q: unknown tool %q", name, tool)
			}
		}
		for i, rule := range srv.Rules {
			if !slices.Contains(srv.Tools, rule.Tool) {
				return fmt.Errorf("server %q: rule %d: tool %q is not served", name, i, rule.Tool)
			}
		}
	}
	return nil
}

// Server returns the named server profile.
func (c *Config) Server(name string) (Server, error) {
	srv, ok := c.Servers[name]
	if !ok {
		names := make([]string, 0, len(c.Servers))
		for n := range c.Servers {
			names = append(names, n)
		}
		slices.Sort(names)
		return Server{}, fmt.Errorf("server %q not defined (available: %v)", name, names)
	}
	return srv, nil
}

// GlossaryPath returns the glossary location for srv, resolved against BaseDir.
func (c *Config) GlossaryPath(srv Server) string {
	p := srv.Glossary.Path
	if p == "" {
		p = defaultGlossaryFile
	}
	if filepath.IsAbs(p) || c.BaseDir == "" {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// GlossaryDriver returns the configured driver, defaulting to json.
func (s Server) GlossaryDriver() string {
	if s.Glossary.Driver == "" {
		return DriverJSON
	}
	return s.Glossary.Driver
}
