package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v3"
)

// BadgerStore keeps snapshots in an embedded Badger database.
type BadgerStore struct {
	db *badger.DB
}

// BadgerOption tweaks the Badger options before the database opens.
type BadgerOption func(badger.Options) badger.Options

// InMemory runs Badger without touching disk.
func InMemory() BadgerOption {
	return func(o badger.Options) badger.Options {
		return o.WithInMemory(true).WithDir("").WithValueDir("")
	}
}

// OpenBadger opens (or creates) the database under dir.
func OpenBadger(dir string, opts ...BadgerOption) (*BadgerStore, error) {
	options := badger.DefaultOptions(dir).WithLogger(nil)
	for _, opt := range opts {
		if opt != nil {
			options = opt(options)
		}
	}
	if !options.InMemory {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("snapshot: create dir: %w", err)
		}
	}
	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Get(ctx context.Context, key string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	var raw []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: get %q: %w", key, err)
	}
	return Decode(raw)
}

func (b *BadgerStore) Put(ctx context.Context, key string, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	}); err != nil {
		return fmt.Errorf("snapshot: put %q: %w", key, err)
	}
	return nil
}

// PutRaw stores bytes verbatim, bypassing encoding.
func (b *BadgerStore) PutRaw(key string, raw []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	})
}

func (b *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		return fmt.Errorf("snapshot: delete %q: %w", key, err)
	}
	return nil
}

// Close releases the database.
func (b *BadgerStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
