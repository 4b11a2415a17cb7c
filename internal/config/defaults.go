package config

// Default returns the built-in configuration used when no config file is
// given. It mirrors the three servers the project has always shipped.
func Default() *Config {
	return &Config{
		Version: "1",
		Servers: map[string]Server{
			"example": {
				Description: "An example MCP server",
				Version:     "0.1.0",
				Tools:       []string{"hello", "add_numbers"},
				Default:     "allow",
			},
			"my-tools": {
				Description: "Hello world example",
				Version:     "0.1.0",
				Tools:       []string{"hello_world"},
				Default:     "allow",
			},
			"tarim": {
				Description: "Manages the project glossary and scans code files.",
				Version:     "0.1.0",
				Tools: []string{
					"get_definition",
					"add_definition",
					"list_terms",
					"scan_project_files",
					"list_project_files",
				},
				Glossary: GlossaryConfig{Driver: DriverJSON, Path: defaultGlossaryFile},
				Default:  "allow",
			},
		},
	}
}
