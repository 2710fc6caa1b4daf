// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/painelmultas/painel/spatial"
)

// Cache holds resolved coordinates by folded location key. It is persisted
// as a JSON object {"key": [lat, lng]}, read in full at open and rewritten
// in full on Save. Entries never expire.
//
// Two processes sharing a file race: the last one to save wins.
type Cache struct {
	path string

	mu      sync.RWMutex
	entries map[string]spatial.Point
	dirty   bool
}

// OpenCache loads path. A missing, unreadable or corrupt file yields an
// empty cache; the problem is logged, never returned. An empty path keeps
// the cache in memory only.
func OpenCache(path string) *Cache {
	c := &Cache{path: path, entries: make(map[string]spatial.Point)}
	if path == "" {
		return c
	}

	entries, err := loadEntries(path)
	if err != nil {
		log.Printf("⚠️ Ignoring geocode cache %s: %v", path, err)
		return c
	}

	c.entries = entries

	return c
}

func loadEntries(path string) (map[string]spatial.Point, error) {
	ret := make(map[string]spatial.Point)

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ret, nil
		}

		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	if len(data) == 0 {
		return ret, nil
	}

	var raw map[string][]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	for k, pair := range raw {
		// Older files stored failures as [null, null]; those are misses.
		if len(pair) != 2 || pair[0] == nil || pair[1] == nil {
			continue
		}

		ret[k] = spatial.Point{Lat: *pair[0], Lng: *pair[1]}
	}

	return ret, nil
}

// Get returns the coordinates stored under key.
func (c *Cache) Get(key string) (spatial.Point, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.entries[key]

	return p, ok
}

// Put stores coordinates under key and marks the cache dirty.
func (c *Cache) Put(key string, p spatial.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = p
	c.dirty = true
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Dirty reports whether there are entries not yet saved.
func (c *Cache) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.dirty
}

// Path returns the backing file, "" for memory-only caches.
func (c *Cache) Path() string {
	return c.path
}

// Save rewrites the backing file when there are unsaved entries. The file
// is replaced atomically so a crash never leaves half a cache behind.
func (c *Cache) Save() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	raw := make(map[string][2]float64, len(c.entries))
	for k, p := range c.entries {
		raw[k] = [2]float64{p.Lat, p.Lng}
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := writeFileAtomic(c.path, data); err != nil {
		return err
	}

	c.dirty = false

	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("setting up cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}

	return nil
}
