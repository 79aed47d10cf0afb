// Package cache holds small in-process caches for provider lookups.
package cache

import "time"

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

// Clock returns the current time. Tests replace it to move past a TTL.
type Clock func() time.Time

// Option configures an LRUCache.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock sets the time source used for expiry.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}
