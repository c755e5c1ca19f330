// Package kv defines the key-value persistence collaborator the tag store
// writes through, plus the backends usertags ships with.
package kv

import "context"

// Storage is a namespaced key-value store. Load reports ok=false when the
// key has never been written.
type Storage interface {
	Load(ctx context.Context, namespace, key string) (value []byte, ok bool, err error)
	Save(ctx context.Context, namespace, key string, value []byte) error
}

// Entry is one key/value pair in a batch write.
type Entry struct {
	Key   string
	Value []byte
}

// Batcher is implemented by backends that can write several keys of one
// namespace in a single transaction. Either every entry is visible
// afterwards or none is.
type Batcher interface {
	SaveBatch(ctx context.Context, namespace string, entries []Entry) error
}

// SaveAll writes entries through the backend's batch path when it has one,
// otherwise key by key in the given order, stopping at the first failure.
func SaveAll(ctx context.Context, s Storage, namespace string, entries []Entry) error {
	if b, ok := s.(Batcher); ok {
		return b.SaveBatch(ctx, namespace, entries)
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Save(ctx, namespace, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}
