package metadata

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerKV stores paths as keys of an embedded Badger database.
type BadgerKV struct {
	db *badger.DB
}

// OpenBadgerKV opens (or creates) a Badger database in dir.
func OpenBadgerKV(dir string) (*BadgerKV, error) {
	return openBadger(badger.DefaultOptions(dir).WithLogger(nil))
}

// OpenBadgerKVInMemory opens a Badger database that is never written to disk.
func OpenBadgerKVInMemory() (*BadgerKV, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func openBadger(opts badger.Options) (*BadgerKV, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	return &BadgerKV{db: db}, nil
}

func (b *BadgerKV) Write(ctx context.Context, path string, value []byte) error {
	key, err := validatePath(path)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (b *BadgerKV) ReadAll(ctx context.Context, path string) (Snapshot, error) {
	collection := normalizeCollection(path)
	children := make(map[string][]byte)

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(collection)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			name, ok := directChild(collection, string(item.Key()))
			if !ok {
				continue
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			children[name] = value
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("badger read %s: %w", collection, err)
	}
	return NewSnapshot(collection, children), nil
}

func (b *BadgerKV) Close() error {
	return b.db.Close()
}
