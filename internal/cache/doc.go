// Package cache implements a single-process, in-memory keyed store with per-entry TTL.
//
// Entries live under a composite Key (segment + id). The store:
//   - is concurrency-safe (one RWMutex over a map + doubly-linked list)
//   - expires entries lazily on access and, optionally, in a background sweep
//   - can bound its size with LRU eviction
//   - owns its sweep goroutine; Close stops it
//
// The store offers no enumeration by segment; callers that need to list
// entries keep their own index of live keys.
package cache
