package cache

import (
	"errors"
	"time"
)

// LayeredCache chains caches from fastest to most durable. Hits in a slower
// tier are copied into every faster tier.
type LayeredCache struct {
	tiers      []Cache
	promoteTTL time.Duration
}

// NewLayeredCache serves responses from memory and keeps them on disk under
// diskDir so later runs can reuse them
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return NewTieredCache(memoryTTL,
		NewMemoryCache(memoryTTL, 10*time.Minute),
		NewDiskCache(diskDir, diskTTL),
	)
}

// NewTieredCache chains tiers in lookup order; promoted entries live for
// promoteTTL (0 keeps each tier's default)
func NewTieredCache(promoteTTL time.Duration, tiers ...Cache) *LayeredCache {
	return &LayeredCache{tiers: tiers, promoteTTL: promoteTTL}
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	for i, tier := range c.tiers {
		val, found := tier.Get(key)
		if !found {
			continue
		}
		for _, faster := range c.tiers[:i] {
			// a failed promotion only costs a slower lookup next time
			_ = faster.Set(key, val, c.promoteTTL)
		}
		return val, true
	}
	return nil, false
}

// Set writes the durable tier first so a response never lives only in memory
// when the disk write fails
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	for i := len(c.tiers) - 1; i >= 0; i-- {
		if err := c.tiers[i].Set(key, value, ttl); err != nil {
			return err
		}
	}
	return nil
}

func (c *LayeredCache) Delete(key string) error {
	var errs []error
	for _, tier := range c.tiers {
		errs = append(errs, tier.Delete(key))
	}
	return errors.Join(errs...)
}

func (c *LayeredCache) Clear() error {
	var errs []error
	for _, tier := range c.tiers {
		errs = append(errs, tier.Clear())
	}
	return errors.Join(errs...)
}
