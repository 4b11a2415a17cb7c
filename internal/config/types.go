package config

// Config is the top-level tarim.yaml structure.
type Config struct {
	Version string            `yaml:"version"`
	Servers map[string]Server `yaml:"servers"`

	// BaseDir is the directory relative paths in the file are resolved
	// against. Empty means the working directory.
	BaseDir string `yaml:"-"`
}

// Server defines one tool server profile and its access policy.
type Server struct {
	Description  string         `yaml:"description,omitempty"`
	Version      string         `yaml:"version,omitempty"`
	Instructions string         `yaml:"instructions,omitempty"`
	Tools        []string       `yaml:"tools"`
	Glossary     GlossaryConfig `yaml:"glossary,omitempty"`
	Scanner      ScannerConfig  `yaml:"scanner,omitempty"`
	Default      string         `yaml:"default"`
	Rules        []Rule         `yaml:"rules,omitempty"`
}

// GlossaryConfig selects the glossary storage backend.
type GlossaryConfig struct {
	Driver string `yaml:"driver,omitempty"` // "json" (default) or "sqlite"
	Path   string `yaml:"path,omitempty"`
}

type ScannerConfig struct {
	Extensions  []string `yaml:"extensions,omitempty"`
	ExcludeDirs []string `yaml:"exclude_dirs,omitempty"`
	Ignore      []string `yaml:"ignore,omitempty"`
}

// Rule defines a single policy rule for a tool.
type Rule struct {
	Tool  string            `yaml:"tool"`
	Allow bool              `yaml:"allow"`
	When  map[string]string `yaml:"when,omitempty"`
}
