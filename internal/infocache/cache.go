// Package infocache remembers the container format and detected sensors of
// recorded files, so repeated decodes of an unchanged file skip detection.
package infocache

import (
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"
)

const bucketName = "files"

// Entry is the cached information of one file.
type Entry struct {
	Size    int64     `yaml:"size"`
	ModTime time.Time `yaml:"modTime"`
	Format  string    `yaml:"format"`
	Sensors string    `yaml:"sensors"`
	Blocks  int64     `yaml:"blocks"`
}

// Cache is a bbolt backed file-info cache.
type Cache struct {
	db *bbolt.DB
}

// Open opens or creates the cache database.
func Open(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening info cache %s: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		return nil, errors.Join(fmt.Errorf("creating bucket: %w", err), db.Close())
	}

	return &Cache{db: db}, nil
}

// Get returns the entry of a file when its size and modification time still
// match the cached ones.
func (c *Cache) Get(path string, size int64, modTime time.Time) (Entry, bool, error) {
	var e Entry
	var found bool
	err := c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(path))
		if v == nil {
			return nil
		}
		if err := yaml.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("decoding entry of %s: %w", path, err)
		}
		found = e.Size == size && e.ModTime.Equal(modTime)
		return nil
	})
	if err != nil || !found {
		return Entry{}, false, err
	}
	return e, true, nil
}

// Put stores the entry of a file, replacing an older one.
func (c *Cache) Put(path string, e Entry) error {
	v, err := yaml.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding entry of %s: %w", path, err)
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(path), v)
	})
}

// Delete removes the entry of a file.
func (c *Cache) Delete(path string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(path))
	})
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}
