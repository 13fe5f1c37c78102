// Package cache provides a Redis-backed request cache for SpaceX API responses.
//
// Entries are keyed by endpoint and request body and expire after a
// per-kind stale time, the same windows a browser request cache would use:
//
//   - launch list queries: 1 minute (5 minutes when filtering upcoming launches)
//   - single launch: 5 minutes
//   - rocket and launchpad: 1 hour
//   - full launch dataset (statistics): 1 hour
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Kind:     cache.KindLaunch,
//		Endpoint: "/v4/launches/5eb87cd9ffd86e000604b32a",
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then
//		_ = manager.Set(ctx, key, cache.NewEntry(body, http.StatusOK, key.Kind.TTL()))
//	}
//
// # Metrics
//
//   - spacex_cache_hits_total{kind} - Cache hits
//   - spacex_cache_misses_total{kind} - Cache misses
//   - spacex_cache_written_bytes_total - Bytes written to the cache
//   - spacex_cache_errors_total{operation} - Cache operation errors
package cache
