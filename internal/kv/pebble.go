package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

type Pebble struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) a Pebble database at <dir>/pebble.
func OpenPebble(dir string) (*Pebble, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := pebble.Open(filepath.Join(dir, "pebble"), &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Pebble{db: db}, nil
}

func pebbleKey(key string) []byte { return []byte("kv:" + key) }

func (p *Pebble) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, closer, err := p.db.Get(pebbleKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	// v is only valid until closer.Close().
	out := append([]byte(nil), v...)
	if err := closer.Close(); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (p *Pebble) Put(_ context.Context, key string, value []byte) error {
	return p.db.Set(pebbleKey(key), value, pebble.Sync)
}

func (p *Pebble) Close() error { return p.db.Close() }
