// Package cache provides a concurrency-safe in-memory TTL cache.
//
// Entries expire a fixed duration after they are written (absolute, not
// sliding). GetOrLoad collapses concurrent loads for the same key into a
// single call via singleflight. Contents are ephemeral and reconstructible;
// nothing is persisted.
package cache
