// Package tools implements the tools a server profile can expose and builds
// a profile's registry from the tool names in its config.
package tools

import (
	"errors"
	"fmt"
	"sort"

	"github.com/M3tu20222/tarim/internal/glossary"
	"github.com/M3tu20222/tarim/internal/registry"
	"github.com/M3tu20222/tarim/internal/scanner"
)

// Deps are the resources tools are built on.
type Deps struct {
	Glossary glossary.Store // required only by the glossary tools
	Scanner  scanner.Options
}

type builder struct {
	usesGlossary bool
	build        func(name string, d Deps) (*registry.Tool, error)
}

var catalog = map[string]builder{
	"hello": {build: func(name string, _ Deps) (*registry.Tool, error) {
		return registry.New(name, "Say hello to someone", Hello)
	}},
	"hello_world": {build: func(name string, _ Deps) (*registry.Tool, error) {
		return registry.New(name, "Hello world example", HelloWorld)
	}},
	"add_numbers": {build: func(name string, _ Deps) (*registry.Tool, error) {
		return registry.New(name, "Add two numbers together", AddNumbers)
	}},
	"get_definition": {usesGlossary: true, build: func(name string, d Deps) (*registry.Tool, error) {
		return registry.New(name,
			"Look up the definition of a term in the project glossary. Returns a notice when the term is not defined.",
			NewGlossary(d.Glossary).GetDefinition)
	}},
	"add_definition": {usesGlossary: true, build: func(name string, d Deps) (*registry.Tool, error) {
		return registry.New(name,
			"Add a term and its definition to the project glossary, or update an existing term.",
			NewGlossary(d.Glossary).AddDefinition)
	}},
	"list_terms": {usesGlossary: true, build: func(name string, d Deps) (*registry.Tool, error) {
		return registry.New(name, "List all terms in the glossary.", NewGlossary(d.Glossary).ListTerms)
	}},
	"scan_project_files": {build: func(name string, d Deps) (*registry.Tool, error) {
		return registry.New(name,
			"Scan the given directory (the project root by default) and its subdirectories and return the content of all code files as a single text.",
			NewScanner(d.Scanner).ScanProjectFiles)
	}},
	"list_project_files": {build: func(name string, d Deps) (*registry.Tool, error) {
		return registry.New(name,
			"List the relative paths of all code files under the given directory.",
			NewScanner(d.Scanner).ListProjectFiles)
	}},
}

// Names returns every tool name a profile may list, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// UsesGlossary reports whether any of the named tools needs a glossary store.
func UsesGlossary(names []string) bool {
	for _, n := range names {
		if catalog[n].usesGlossary {
			return true
		}
	}
	return false
}

// Build returns a registry holding the named tools.
func Build(names []string, d Deps) (*registry.Registry, error) {
	reg := registry.NewRegistry()
	for _, name := range names {
		b, ok := catalog[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		if b.usesGlossary && d.Glossary == nil {
			return nil, errors.New("tool " + name + " requires a glossary store")
		}
		tool, err := b.build(name, d)
		if err != nil {
			return nil, fmt.Errorf("building tool %q: %w", name, err)
		}
		if err := reg.Register(tool); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
