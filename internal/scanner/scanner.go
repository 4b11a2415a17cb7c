// Package scanner walks a project tree and collects the source files in it.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNotDirectory is returned when the scan root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// DefaultExtensions are the source file suffixes scanned when none are configured.
var DefaultExtensions = []string{".py", ".js", ".ts", ".tsx", ".jsx", ".java", ".go", ".cs", ".html", ".css"}

// DefaultExcludeDirs are the directory names skipped when none are configured.
var DefaultExcludeDirs = []string{"node_modules", ".git", "venv", "__pycache__", ".next", ".vscode"}

// Options controls which files a scan picks up.
type Options struct {
	Extensions  []string // file suffixes to include, with the leading dot
	ExcludeDirs []string // directory names pruned wherever they appear
	Ignore      []string // doublestar patterns matched against the slash-separated relative path
}

// WithDefaults fills empty fields from the package defaults.
func (o Options) WithDefaults() Options {
	if len(o.Extensions) == 0 {
		o.Extensions = DefaultExtensions
	}
	if len(o.ExcludeDirs) == 0 {
		o.ExcludeDirs = DefaultExcludeDirs
	}
	return o
}

// Validate checks that every ignore pattern is well formed.
func (o Options) Validate() error {
	for _, p := range o.Ignore {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid ignore pattern %q", p)
		}
	}
	return nil
}

// Entry is one scanned file. Exactly one of Content and Err is meaningful.
type Entry struct {
	Path    string // relative to the scan root, slash separated
	Content string
	Err     error
}

// Scan walks root and returns the content of every matching file in walk
// order. Unreadable files are reported inline through Entry.Err. The scan
// fails when root is not a directory or cannot be listed.
func Scan(root string, opts Options) ([]Entry, error) {
	fsys, err := openRoot(root)
	if err != nil {
		return nil, err
	}
	return scanFS(fsys, opts)
}

// List walks root like Scan but returns only the relative paths of the
// matching files, without reading them.
func List(root string, opts Options) ([]string, error) {
	fsys, err := openRoot(root)
	if err != nil {
		return nil, err
	}
	return listFS(fsys, opts)
}

// openRoot does not follow a symlinked root, matching how entries below it
// are treated.
func openRoot(root string) (fs.FS, error) {
	info, err := os.Lstat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}
	return os.DirFS(root), nil
}

func scanFS(fsys fs.FS, opts Options) ([]Entry, error) {
	var entries []Entry
	err := walk(fsys, opts, func(rel string, walkErr error) {
		if walkErr != nil {
			entries = append(entries, Entry{Path: rel, Err: walkErr})
			return
		}
		data, err := fs.ReadFile(fsys, rel)
		if err != nil {
			entries = append(entries, Entry{Path: rel, Err: err})
			return
		}
		entries = append(entries, Entry{Path: rel, Content: strings.ToValidUTF8(string(data), "")})
	})
	return entries, err
}

func listFS(fsys fs.FS, opts Options) ([]string, error) {
	var paths []string
	err := walk(fsys, opts, func(rel string, walkErr error) {
		if walkErr == nil {
			paths = append(paths, rel)
		}
	})
	return paths, err
}

// walk visits the matching files of fsys with their slash-separated paths.
func walk(fsys fs.FS, opts Options, visit func(rel string, err error)) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	return fs.WalkDir(fsys, ".", func(rel string, d fs.DirEntry, err error) error {
		if err != nil {
			if rel == "." {
				return fmt.Errorf("reading scan root: %w", err)
			}
			visit(rel, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if rel != "." && (slices.Contains(opts.ExcludeDirs, d.Name()) || ignored(opts.Ignore, rel)) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !slices.Contains(opts.Extensions, path.Ext(d.Name())) {
			return nil
		}
		if ignored(opts.Ignore, rel) {
			return nil
		}
		visit(rel, nil)
		return nil
	})
}

func ignored(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
