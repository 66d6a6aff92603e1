package storage

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerMetadataStore implements MetadataStore on BadgerDB, an embedded
// key-value store. Compared to the flat JSON file it gives the side-table
// transactional per-key writes and survives crashes without a rewrite of the
// whole document. Keys are the same composite keys the JSON store uses;
// values are JSON-encoded FileMeta.
//
// The store is a drop-in alternative selected via metadata_store.type in the
// configuration. The backup document stays a JSON file either way, since its
// location and format are part of the storage root's on-disk contract.
type BadgerMetadataStore struct {
	db *badger.DB
}

// BadgerMetadataStoreConfig contains configuration for the BadgerDB-backed
// metadata store.
type BadgerMetadataStoreConfig struct {
	// DBPath is the directory where BadgerDB stores its files.
	DBPath string `mapstructure:"db_path"`
}

// NewBadgerMetadataStore opens (or creates) a BadgerDB database at the
// configured path.
func NewBadgerMetadataStore(ctx context.Context, config BadgerMetadataStoreConfig) (*BadgerMetadataStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(config.DBPath)
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}
	return &BadgerMetadataStore{db: db}, nil
}

func (s *BadgerMetadataStore) Load(ctx context.Context) (map[string]FileMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := map[string]FileMeta{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(val []byte) error {
				var meta FileMeta
				if err := json.Unmarshal(val, &meta); err != nil {
					return fmt.Errorf("corrupt metadata entry %s: %w", key, err)
				}
				entries[key] = meta
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *BadgerMetadataStore) Save(ctx context.Context, entries map[string]FileMeta) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Collect keys that disappeared from the map so the DB mirrors it.
	var stale []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if _, ok := entries[key]; !ok {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range stale {
		if err := wb.Delete([]byte(key)); err != nil {
			return err
		}
	}
	for key, meta := range entries {
		val, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to serialize metadata entry %s: %w", key, err)
		}
		if err := wb.Set([]byte(key), val); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (s *BadgerMetadataStore) Close() error {
	return s.db.Close()
}
