package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/sncop/coursestore/internal/logger"
	"github.com/sncop/coursestore/internal/storage"
)

// CreateMetadataStore creates the metadata store instance selected by the
// configuration.
//
// The Metadata.Type field picks the implementation; the matching
// type-specific section is decoded into that store's config struct.
//
// Parameters:
//   - ctx: Context for store initialization
//   - cfg: Loaded configuration
//
// Returns:
//   - storage.MetadataStore: Initialized metadata store
//   - error: Configuration or initialization error
func CreateMetadataStore(ctx context.Context, cfg *Config) (storage.MetadataStore, error) {
	switch cfg.Metadata.Type {
	case "jsonfile":
		logger.Info("Using JSON file metadata store at %s", cfg.Storage.MetadataFile)
		return storage.NewJSONFileStore(cfg.Storage.MetadataFile), nil
	case "badger":
		return createBadgerMetadataStore(ctx, cfg.Metadata.Badger)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q", cfg.Metadata.Type)
	}
}

// createBadgerMetadataStore creates a BadgerDB metadata store.
func createBadgerMetadataStore(ctx context.Context, options map[string]any) (storage.MetadataStore, error) {
	// Decode BadgerDB-specific configuration
	var badgerCfg storage.BadgerMetadataStoreConfig
	if err := mapstructure.Decode(options, &badgerCfg); err != nil {
		return nil, fmt.Errorf("invalid badger config: %w", err)
	}

	if badgerCfg.DBPath == "" {
		return nil, fmt.Errorf("badger metadata store: db_path is required")
	}

	logger.Info("Using badger metadata store at %s", badgerCfg.DBPath)
	store, err := storage.NewBadgerMetadataStore(ctx, badgerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return store, nil
}
