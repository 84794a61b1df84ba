// Package kv is the persistence shim under the repository: typed values stored
// as JSON under named keys, over a pluggable byte backend.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"threadshelf/internal/logging"

	"github.com/charmbracelet/log"
)

const (
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

// Backend stores raw bytes under string keys. Get reports found=false for a
// key that was never written.
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

type Store struct {
	backend Backend
	log     *log.Logger
}

func New(b Backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{backend: b, log: logger}
}

// Open opens the named backend rooted at dir.
func Open(ctx context.Context, kind string, dir string, logger *log.Logger) (*Store, error) {
	var (
		b   Backend
		err error
	)
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", BackendSQLite:
		b, err = OpenSQLite(ctx, dir)
	case BackendPebble:
		b, err = OpenPebble(dir)
	case BackendMemory:
		b = NewMemory()
	default:
		return nil, fmt.Errorf("unknown backend: %q (expected sqlite|pebble|memory)", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", kind, err)
	}
	return New(b, logger), nil
}

func (s *Store) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// Save serializes v as JSON and stores it under key.
func (s *Store) Save(ctx context.Context, key string, v any) error {
	if s == nil || s.backend == nil {
		return errors.New("kv: nil store")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	if err := s.backend.Put(ctx, key, b); err != nil {
		return fmt.Errorf("kv: put %s: %w", key, err)
	}
	return nil
}

// Has reports whether key holds a value.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if s == nil || s.backend == nil {
		return false, errors.New("kv: nil store")
	}
	b, found, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return found && len(b) > 0, nil
}

// Load returns the value stored under key, or def when the key is absent,
// unreadable, or does not decode into T. It never fails.
func Load[T any](ctx context.Context, s *Store, key string, def T) T {
	if s == nil || s.backend == nil {
		return def
	}
	b, found, err := s.backend.Get(ctx, key)
	if err != nil {
		s.log.Warn("kv read failed; using default", "key", key, "err", err)
		return def
	}
	if !found || len(b) == 0 {
		return def
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		s.log.Warn("kv value unparseable; using default", "key", key, "err", err)
		return def
	}
	return v
}
