package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sncop/coursestore/internal/logger"
)

// MetadataStore persists the metadata side-table: the flat map from
// composite key (see MetadataKey) to FileMeta.
//
// Two implementations exist, mirroring the catalog's deployment options:
//   - JSONFileStore: a single flat JSON object, compatible with existing
//     file-metadata.json files (the default)
//   - BadgerMetadataStore: an embedded transactional key-value store
//
// Implementations need not be safe for concurrent use; the Catalog funnels
// all access through its own lock.
type MetadataStore interface {
	// Load reads the full side-table. A missing backing file yields an
	// empty map, not an error.
	Load(ctx context.Context) (map[string]FileMeta, error)

	// Save replaces the persisted side-table with the given map.
	Save(ctx context.Context, entries map[string]FileMeta) error

	// Close releases any resources held by the store.
	Close() error
}

// JSONFileStore persists the side-table as one flat JSON object, the
// historical on-disk format.
type JSONFileStore struct {
	path string
}

// NewJSONFileStore creates a store backed by the given file path. The file
// is not created until the first Save.
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

func (s *JSONFileStore) Load(ctx context.Context) (map[string]FileMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]FileMeta{}, nil
		}
		return nil, ioErr("failed to read metadata file", s.path)
	}

	entries := map[string]FileMeta{}
	if err := json.Unmarshal(data, &entries); err != nil {
		// The side-table is a cache over the backup document and the disk
		// tree; a corrupt file is recoverable, not fatal.
		logger.Warn("Metadata file %s is not valid JSON, starting empty: %v", s.path, err)
		return map[string]FileMeta{}, nil
	}
	return entries, nil
}

func (s *JSONFileStore) Save(ctx context.Context, entries map[string]FileMeta) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return ioErr("failed to serialize metadata", s.path)
	}
	return writeFileAtomic(s.path, data)
}

func (s *JSONFileStore) Close() error {
	return nil
}

// writeFileAtomic writes data to path via a temp file and rename, so a crash
// mid-write never leaves a torn file behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return ioErr("failed to create temp file", dir)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return ioErr("failed to write temp file", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return ioErr("failed to close temp file", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return ioErr("failed to replace file", path)
	}
	return nil
}
