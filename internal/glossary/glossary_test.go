package glossary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// openStores returns one store per driver, each on a fresh temp location.
func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	sqlite, err := OpenSQLite(filepath.Join(dir, "glossary.db"), testLogger())
	if err != nil {
		t.Fatalf("opening sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"json":   NewFileStore(filepath.Join(dir, "glossary.json"), testLogger()),
		"sqlite": sqlite,
	}
}

func TestReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ack, err := store.Put(ctx, "API", "Application Programming Interface")
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if ack.Replaced || ack.Concurrent {
				t.Errorf("unexpected ack for first put: %+v", ack)
			}

			def, found, err := store.Get(ctx, "API")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if !found || def != "Application Programming Interface" {
				t.Errorf("get = %q, %v", def, found)
			}

			ack, err = store.Put(ctx, "API", "Uygulama Programlama Arayüzü")
			if err != nil {
				t.Fatal(err)
			}
			if !ack.Replaced {
				t.Error("second put should report a replacement")
			}
			def, _, _ = store.Get(ctx, "API")
			if def != "Uygulama Programlama Arayüzü" {
				t.Errorf("last write should win, got %q", def)
			}
		})
	}
}

func TestGetMissingTerm(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			def, found, err := store.Get(ctx, "Unknown")
			if err != nil {
				t.Fatalf("get on empty store: %v", err)
			}
			if found || def != "" {
				t.Errorf("expected not found, got %q", def)
			}
		})
	}
}

func TestGetLowercaseFallback(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			store.Put(ctx, "sulama", "irrigation")
			def, found, err := store.Get(ctx, "Sulama")
			if err != nil || !found || def != "irrigation" {
				t.Errorf("fallback lookup = %q, %v, %v", def, found, err)
			}

			// Keys are case-sensitive as stored.
			store.Put(ctx, "NDVI", "vegetation index")
			if _, found, _ := store.Get(ctx, "ndvi"); found {
				t.Error("lower-case query should not match an upper-case key")
			}
		})
	}
}

func TestGetEmptyDefinitionIsNotFound(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Put(ctx, "draft", ""); err != nil {
				t.Fatal(err)
			}
			if def, found, err := store.Get(ctx, "draft"); err != nil || found || def != "" {
				t.Errorf("get empty definition = %q, %v, %v", def, found, err)
			}
			keys, err := store.Keys(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(keys) != 1 || keys[0] != "draft" {
				t.Errorf("keys = %v, the term is still stored", keys)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			want := []string{"API", "MCP", "NDVI", "sulama"}
			for _, k := range want {
				if _, err := store.Put(ctx, k, "def of "+k); err != nil {
					t.Fatal(err)
				}
			}
			store.Put(ctx, "MCP", "redefined")

			got, err := store.Keys(ctx)
			if err != nil {
				t.Fatal(err)
			}
			sort.Strings(got)
			if strings.Join(got, ",") != strings.Join(want, ",") {
				t.Errorf("keys = %v, want %v", got, want)
			}
		})
	}
}

func TestFileStoreMissingAndEmptyFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "glossary.json")
	store := NewFileStore(path, testLogger())

	keys, err := store.Keys(ctx)
	if err != nil || len(keys) != 0 {
		t.Fatalf("missing file should read as empty, got %v, %v", keys, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(path, []byte("  \n"), 0o644)
	keys, err = store.Keys(ctx)
	if err != nil || len(keys) != 0 {
		t.Fatalf("blank file should read as empty, got %v, %v", keys, err)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	store := NewFileStore(path, testLogger())
	if _, _, err := store.Get(context.Background(), "x"); err == nil {
		t.Fatal("expected error for corrupt glossary file")
	}
}

func TestFileStoreFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	store := NewFileStore(path, testLogger())
	store.Put(context.Background(), "Çiftçi", "farmer <tarım>")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"Çiftçi\": \"farmer <tarım>\"\n}\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestFileStoreDetectsLostUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	a := NewFileStore(path, testLogger())
	b := NewFileStore(path, testLogger())

	snapA, err := a.Load()
	if err != nil {
		t.Fatal(err)
	}
	snapB, err := b.Load()
	if err != nil {
		t.Fatal(err)
	}

	snapA.Entries["alpha"] = "first writer"
	concurrent, err := a.Save(snapA)
	if err != nil {
		t.Fatal(err)
	}
	if concurrent {
		t.Error("first writer should not see a concurrent change")
	}

	snapB.Entries["beta"] = "second writer"
	concurrent, err = b.Save(snapB)
	if err != nil {
		t.Fatal(err)
	}
	if !concurrent {
		t.Fatal("second writer should be told it overwrote a concurrent change")
	}

	// Last write wins: alpha is lost, but the file is intact JSON.
	data, _ := os.ReadFile(path)
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("glossary no longer parseable: %v", err)
	}
	if _, ok := entries["alpha"]; ok {
		t.Error("expected alpha to be overwritten by the second writer")
	}
	if entries["beta"] != "second writer" {
		t.Errorf("beta = %q", entries["beta"])
	}

	// A writer that saves again from its refreshed snapshot is not flagged.
	snapB.Entries["gamma"] = "again"
	if concurrent, _ := b.Save(snapB); concurrent {
		t.Error("saving on top of own write should not be flagged")
	}
}

func TestFileStoreRacingWritersKeepFileParseable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		store := NewFileStore(path, testLogger())
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if _, err := store.Put(ctx, fmt.Sprintf("w%d-term%d", w, i), "x"); err != nil {
					t.Errorf("put: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("glossary corrupted by racing writers: %v", err)
	}
	if len(entries) == 0 || len(entries) > 50 {
		t.Errorf("unexpected entry count %d", len(entries))
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open("json", filepath.Join(dir, "g.json"), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("json driver returned %T", s)
	}
	s, err = Open("sqlite", filepath.Join(dir, "g.db"), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("sqlite driver returned %T", s)
	}
	if _, err := Open("etcd", "x", testLogger()); err == nil {
		t.Error("expected error for unknown driver")
	}
}
