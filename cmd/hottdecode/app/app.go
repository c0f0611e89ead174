package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/roman-kulish/hott-telemetry/internal/infocache"
	"github.com/roman-kulish/hott-telemetry/internal/storage"
)

const (
	storageDir = "data"
)

// Run decodes every configured file into the store.
func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	paths, err := expandFiles(config.Files)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files match the configured patterns")
	}

	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	options := []func(*Orchestrator){
		WithMaxBatchSize(config.Storage.MaxBatchSize),
		WithWorkers(config.Workers),
	}
	if config.Cache.Enabled {
		cache, err := infocache.Open(config.Cache.Path)
		if err != nil {
			return err
		}
		defer cache.Close()
		options = append(options, WithCache(cache))
	}

	o := NewOrchestrator(store, config.Decoder, logger, options...)
	return o.Run(ctx, paths)
}

// expandFiles resolves glob patterns, keeping the configured order and
// dropping duplicates.
func expandFiles(patterns []string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid file pattern '%s': %w", pattern, err)
		}
		for _, m := range matches {
			if !slices.Contains(paths, m) {
				paths = append(paths, m)
			}
		}
	}
	return paths, nil
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	dbPath := filepath.Join(wd, storageDir)
	if config.DataDirectory != "" {
		dbPath = config.DataDirectory
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(wd, dbPath)
		}
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, fmt.Errorf("checking storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	return storage.NewSqliteStore(filepath.Join(dbPath, config.Database)), nil
}
