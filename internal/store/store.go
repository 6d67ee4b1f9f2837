// Package store persists named macros. Values are the serialized macro text,
// stored verbatim with no schema or versioning.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrEmptyName is returned for operations that need a macro name
var ErrEmptyName = errors.New("macro name is required")

// ErrNotFound is returned when a named macro does not exist
var ErrNotFound = errors.New("macro not found")

// Store is the persistence service for named macros
type Store interface {
	// Save writes serialized under name, replacing any previous value
	Save(ctx context.Context, name, serialized string) error
	// LoadAll returns every stored macro keyed by name
	LoadAll(ctx context.Context) (map[string]string, error)
	// Delete removes name; removing a missing name is not an error
	Delete(ctx context.Context, name string) error
	Close() error
}

// Config selects and configures a backend
type Config struct {
	Driver string // sqlite or redis
	Path   string // SQLite database file

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string // Hash holding all macros
}

// Open creates the backend named by cfg.Driver
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLStore(cfg.Path, logger)
	case "redis":
		return NewRedisStore(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown store driver: %s (supported: sqlite, redis)", cfg.Driver)
	}
}

// Load returns a single stored macro
func Load(ctx context.Context, s Store, name string) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	all, err := s.LoadAll(ctx)
	if err != nil {
		return "", err
	}
	v, ok := all[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return v, nil
}
