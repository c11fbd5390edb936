// Package cache holds small in-process caches for derived data.
package cache

import (
	"context"
	"time"

	"feetax/internal/log"
)

// Cache is the minimal contract shared by the caches in this package.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Purge()
	Size() int
}

// Cleaner is a cache that can drop expired entries on demand.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically cleans registered caches.
type Janitor struct {
	caches []Cleaner
	logger *log.Logger
}

func NewJanitor(logger *log.Logger, caches ...Cleaner) *Janitor {
	if logger == nil {
		logger = log.Discard()
	}
	return &Janitor{caches: caches, logger: logger.WithComponent(log.ComponentCache)}
}

// Run cleans every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := j.Clean(); n > 0 {
				j.logger.DebugContext(ctx, "Removed expired cache entries", "count", n)
			}
		}
	}
}

// Clean runs one pass and returns the number of entries removed.
func (j *Janitor) Clean() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}
