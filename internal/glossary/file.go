package glossary

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps the glossary in a JSON object file. Every operation reads
// the whole file and every mutation writes it back whole. There is no
// cross-process lock: concurrent writers race and the last one wins, but
// the race is detected and reported through Ack.Concurrent.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore returns a store backed by the JSON file at path. The file is
// created on first write; a missing file reads as an empty glossary.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Snapshot is the glossary as read from disk at one point in time.
type Snapshot struct {
	Entries map[string]string

	fingerprint [sha256.Size]byte
	existed     bool
}

// Load reads the whole file.
func (s *FileStore) Load() (*Snapshot, error) {
	data, existed, err := s.read()
	if err != nil {
		return nil, err
	}
	entries := map[string]string{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parsing glossary %s: %w", s.path, err)
		}
	}
	return &Snapshot{
		Entries:     entries,
		fingerprint: sha256.Sum256(data),
		existed:     existed,
	}, nil
}

// Save writes snap back. It reports whether the file changed on disk since
// snap was loaded; the write happens either way.
func (s *FileStore) Save(snap *Snapshot) (concurrent bool, err error) {
	current, existed, err := s.read()
	if err != nil {
		return false, err
	}
	concurrent = existed != snap.existed || sha256.Sum256(current) != snap.fingerprint

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap.Entries); err != nil {
		return concurrent, fmt.Errorf("encoding glossary: %w", err)
	}
	if err := writeFileAtomic(s.path, buf.Bytes()); err != nil {
		return concurrent, err
	}

	snap.fingerprint = sha256.Sum256(buf.Bytes())
	snap.existed = true
	return concurrent, nil
}

func (s *FileStore) Get(ctx context.Context, term string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	snap, err := s.Load()
	if err != nil {
		return "", false, err
	}
	return lookup(snap.Entries, term)
}

func (s *FileStore) Put(ctx context.Context, term, definition string) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}
	snap, err := s.Load()
	if err != nil {
		return Ack{}, err
	}
	_, replaced := snap.Entries[term]
	snap.Entries[term] = definition

	concurrent, err := s.Save(snap)
	if err != nil {
		return Ack{}, err
	}
	if concurrent {
		s.logger.Warn("glossary file changed during update; last write wins",
			"path", s.path, "term", term)
	}
	return Ack{Term: term, Replaced: replaced, Concurrent: concurrent}, nil
}

func (s *FileStore) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := s.Load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(snap.Entries))
	for k := range snap.Entries {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) read() ([]byte, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading glossary: %w", err)
	}
	return data, true, nil
}

// lookup prefers the exact key over its lower-cased form. An empty
// definition counts as not found.
func lookup(entries map[string]string, term string) (string, bool, error) {
	def, ok := entries[term]
	if !ok {
		def = entries[strings.ToLower(term)]
	}
	return def, def != "", nil
}

// writeFileAtomic replaces path with data through a temp file in the same
// directory, so readers see either the old or the new file, never a torn one.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating glossary directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing glossary: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("writing glossary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing glossary: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing glossary: %w", err)
	}
	return nil
}
