package pkgmgr

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Cache is a small key-value store backing the is-installed probes, so one
// run never shells out twice for the same question. It is written as JSON
// under the given path and is cleared at the start and end of a lifecycle;
// nothing in it is meant to survive a run.
type Cache struct {
	path    string
	entries map[string]string
}

// OpenCache loads the cache file at path, or starts empty when the file is
// missing or unreadable.
func OpenCache(path string) *Cache {
	c := &Cache{path: path, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	_ = json.Unmarshal(data, &c.entries)
	if c.entries == nil {
		c.entries = make(map[string]string)
	}
	return c
}

// Get returns the cached value for key and whether it was present.
func (c *Cache) Get(key string) (string, bool) {
	v, ok := c.entries[key]
	return v, ok
}

// Set stores key=value and persists the cache. Persistence failures are
// ignored: the in-memory copy still serves the rest of the run.
func (c *Cache) Set(key, value string) {
	c.entries[key] = value
	c.persist()
}

// Clear drops every entry and removes the backing file.
func (c *Cache) Clear() {
	c.entries = make(map[string]string)
	if c.path != "" {
		_ = os.Remove(c.path)
	}
}

// Len reports how many entries are cached.
func (c *Cache) Len() int { return len(c.entries) }

func (c *Cache) persist() {
	if c.path == "" {
		return
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return
	}
	_ = os.WriteFile(c.path, data, 0644)
}
