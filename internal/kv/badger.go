package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Badger is a Storage backed by an embedded Badger database.
// Keys are laid out as "<namespace>:<key>".
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a Badger database in dir.
// An empty dir opens an in-memory instance.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil            // Badger's own logging is noise for a CLI
	opts.SyncWrites = true       // each save is a user action; keep it durable
	opts.CompactL0OnClose = true // faster next startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &Badger{db: db}, nil
}

// Close closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

func badgerKey(namespace, key string) []byte {
	buf := make([]byte, 0, len(namespace)+1+len(key))
	buf = append(buf, namespace...)
	buf = append(buf, ':')
	buf = append(buf, key...)
	return buf
}

// Load implements Storage.
func (b *Badger) Load(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(namespace, key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s/%s: %w", namespace, key, err)
	}
	return value, true, nil
}

// Save implements Storage.
func (b *Badger) Save(ctx context.Context, namespace, key string, value []byte) error {
	return b.SaveBatch(ctx, namespace, []Entry{{Key: key, Value: value}})
}

// SaveBatch implements Batcher using a single read-write transaction.
func (b *Badger) SaveBatch(ctx context.Context, namespace string, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, e := range entries {
			if err := txn.Set(badgerKey(namespace, e.Key), e.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", namespace, err)
	}
	return nil
}
