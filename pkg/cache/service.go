package cache

import "time"

// CacheService defines the behavior for caching mechanisms
type CacheService interface {
	// Get returns the value and true if it is present and not expired.
	Get(key string) (interface{}, bool)

	// Set stores value for duration. A zero duration uses the cache default.
	Set(key string, value interface{}, duration time.Duration)

	Delete(key string)
}
