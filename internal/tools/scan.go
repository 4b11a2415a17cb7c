package tools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/M3tu20222/tarim/internal/registry"
	"github.com/M3tu20222/tarim/internal/scanner"
)

type ScanInput struct {
	DirectoryPath string `json:"directory_path,omitempty" jsonschema:"default=." jsonschema_description:"Directory to scan (defaults to the working directory)"`
}

// Scanner exposes the directory scanner as tools.
type Scanner struct {
	opts scanner.Options
}

func NewScanner(opts scanner.Options) *Scanner {
	return &Scanner{opts: opts.WithDefaults()}
}

// ScanProjectFiles concatenates the content of every code file under the
// directory into one text block per file.
func (s *Scanner) ScanProjectFiles(ctx context.Context, in ScanInput) (registry.Result, error) {
	root, res, ok := resolveRoot(in.DirectoryPath)
	if !ok {
		return res, nil
	}
	entries, err := scanner.Scan(root, s.opts)
	if err != nil {
		return scanFailure(in.DirectoryPath, err), nil
	}
	if len(entries) == 0 {
		return registry.Textf("No code files found in '%s'.", in.DirectoryPath), nil
	}

	var b strings.Builder
	for _, e := range entries {
		if e.Err != nil {
			fmt.Fprintf(&b, "--- Error (unreadable file): %s - %v ---\n\n", e.Path, e.Err)
			continue
		}
		fmt.Fprintf(&b, "--- File: %s ---\n\n%s\n\n", e.Path, e.Content)
	}
	return registry.Text(b.String()), nil
}

// ListProjectFiles returns the relative paths of the code files under the
// directory, one per line.
func (s *Scanner) ListProjectFiles(ctx context.Context, in ScanInput) (registry.Result, error) {
	root, res, ok := resolveRoot(in.DirectoryPath)
	if !ok {
		return res, nil
	}
	paths, err := scanner.List(root, s.opts)
	if err != nil {
		return scanFailure(in.DirectoryPath, err), nil
	}
	if len(paths) == 0 {
		return registry.Textf("No code files found in '%s'.", in.DirectoryPath), nil
	}
	return registry.Text(strings.Join(paths, "\n")), nil
}

func resolveRoot(dir string) (string, registry.Result, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", registry.Failure(fmt.Sprintf("Error: cannot resolve '%s': %v", dir, err)), false
	}
	return abs, registry.Result{}, true
}

func scanFailure(dir string, err error) registry.Result {
	if errors.Is(err, scanner.ErrNotDirectory) {
		return registry.Failure(fmt.Sprintf("Error: '%s' is not a directory.", dir))
	}
	return registry.Failure(fmt.Sprintf("Error while scanning '%s': %v", dir, err))
}
