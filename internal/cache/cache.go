package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/placecrawl/internal/model"
)

// Cache stores raw upstream response bodies
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "placecrawl:v1:"

// SearchKey identifies one page of one query against one source
func SearchKey(source, query string, page int) string {
	return hashKey(source, "search", query, strconv.Itoa(page))
}

// ImageKey identifies an image lookup
func ImageKey(source, query string, count int) string {
	return hashKey(source, "image", query, strconv.Itoa(count))
}

func hashKey(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg, or nil when caching is disabled
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}
