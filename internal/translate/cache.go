package translate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

// CacheEntry represents a cached translation entry
type CacheEntry struct {
	Hash       string    `json:"hash"`
	Original   string    `json:"original"`
	Translated string    `json:"translated"`
	Language   string    `json:"language"`
	Model      string    `json:"model"`
	Timestamp  time.Time `json:"timestamp"`
}

// CacheFile represents the on-disk cache file structure
type CacheFile struct {
	Version string                `json:"version"`
	Entries map[string]CacheEntry `json:"entries"`
}

// Cache manages cached translations keyed by a hash of the source
// text, target language, and model.
type Cache struct {
	cachePath string
	cache     map[string]CacheEntry
	mu        sync.RWMutex
}

// NewCache creates a new translation cache backed by the given file.
func NewCache(cachePath string) *Cache {
	return &Cache{
		cachePath: cachePath,
		cache:     make(map[string]CacheEntry),
	}
}

// computeHash computes the cache key for a text/language/model triple.
func computeHash(text, language, model string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(language))
	h.Write([]byte{0})
	h.Write([]byte(model))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached translation if available.
func (c *Cache) Get(text, language, model string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.cache[computeHash(text, language, model)]
	if !exists {
		return "", false
	}
	return entry.Translated, true
}

// Set stores a translation in the cache.
func (c *Cache) Set(text, language, model, translated string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := computeHash(text, language, model)
	c.cache[hash] = CacheEntry{
		Hash:       hash,
		Original:   text,
		Translated: translated,
		Language:   language,
		Model:      model,
		Timestamp:  time.Now(),
	}
}

// Load loads the cache from disk. A missing file is not an error.
func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.cachePath); os.IsNotExist(err) {
		logger.Debug("cache file does not exist, starting with empty cache",
			logger.String("path", c.cachePath))
		return nil
	}

	data, err := os.ReadFile(c.cachePath)
	if err != nil {
		logger.Error("failed to read cache file", err, logger.String("path", c.cachePath))
		return types.NewAppError(types.ErrInternal, "failed to read cache file", err)
	}

	var cacheFile CacheFile
	if err := json.Unmarshal(data, &cacheFile); err != nil {
		logger.Error("failed to parse cache file", err, logger.String("path", c.cachePath))
		return types.NewAppError(types.ErrInternal, "failed to parse cache file", err)
	}

	if cacheFile.Entries != nil {
		c.cache = cacheFile.Entries
	}

	logger.Info("translation cache loaded",
		logger.String("path", c.cachePath),
		logger.Int("entries", len(c.cache)))
	return nil
}

// Save persists the cache to disk.
func (c *Cache) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cacheFile := CacheFile{
		Version: "1.0",
		Entries: c.cache,
	}

	data, err := json.MarshalIndent(cacheFile, "", "  ")
	if err != nil {
		logger.Error("failed to marshal cache", err)
		return types.NewAppError(types.ErrInternal, "failed to marshal cache", err)
	}

	dir := filepath.Dir(c.cachePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create cache directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrInternal, "failed to create cache directory", err)
	}

	if err := os.WriteFile(c.cachePath, data, 0644); err != nil {
		logger.Error("failed to write cache file", err, logger.String("path", c.cachePath))
		return types.NewAppError(types.ErrInternal, fmt.Sprintf("failed to write cache file: %s", c.cachePath), err)
	}

	logger.Debug("translation cache saved",
		logger.String("path", c.cachePath),
		logger.Int("entries", len(c.cache)))
	return nil
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Clear removes all entries from the in-memory cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]CacheEntry)
}

// GetCachePath returns the cache file path.
func (c *Cache) GetCachePath() string {
	return c.cachePath
}
