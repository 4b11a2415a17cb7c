// Package glossary persists the project glossary, a flat term to definition
// mapping.
package glossary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/M3tu20222/tarim/internal/config"
)

// Store is the glossary storage accessor.
type Store interface {
	// Get returns the definition of term. When term is not stored verbatim
	// its lower-cased form is tried.
	Get(ctx context.Context, term string) (definition string, found bool, err error)
	// Put adds or replaces a definition. Last write wins.
	Put(ctx context.Context, term, definition string) (Ack, error)
	// Keys lists every stored term.
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Ack acknowledges a Put.
type Ack struct {
	Term     string
	Replaced bool
	// Concurrent is set when another writer changed the backing file between
	// this Put reading it and writing it back. That writer's changes may have
	// been overwritten.
	Concurrent bool
}

// Open returns the store for driver at path.
func Open(driver, path string, logger *slog.Logger) (Store, error) {
	switch driver {
	case "", config.DriverJSON:
		return NewFileStore(path, logger), nil
	case config.DriverSQLite:
		return OpenSQLite(path, logger)
	default:
		return nil, fmt.Errorf("unknown glossary driver %q", driver)
	}
}
