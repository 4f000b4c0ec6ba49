package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hugo-r/server-challenge/internal/errs"
)

// Config controls cache capacity and maintenance behavior.
//
//   - MaxEntries <= 0 means "unbounded" (no LRU eviction)
//   - CleanupInterval <= 0 disables background cleanup (lazy expiration still works)
type Config struct {
	MaxEntries      int
	CleanupInterval time.Duration
}

// Key addresses one entry: a named segment and an id within it.
type Key[K comparable] struct {
	Segment string
	ID      K
}

func (k Key[K]) String() string {
	return fmt.Sprintf("%s:%v", k.Segment, k.ID)
}

// Cache is a concurrency-safe in-memory store with TTL and optional LRU eviction.
//
// Values are stored by value; callers storing pointers share them.
type Cache[K comparable, V any] struct {
	mu sync.RWMutex

	maxEntries int
	items      map[Key[K]]*list.Element
	lru        *list.List // Front = MRU, Back = LRU

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cleanupEvery time.Duration
	closed       bool

	now func() time.Time
}

// hasExpiry=false means "never expires".
type entry[K comparable, V any] struct {
	key       Key[K]
	value     V
	expiresAt time.Time
	hasExpiry bool
}

func (e *entry[K, V]) expired(now time.Time) bool {
	return e.hasExpiry && !e.expiresAt.After(now)
}

var ErrClosed = errors.New("cache is closed")

// New constructs a cache and starts background maintenance (if enabled).
func New[K comparable, V any](cfg Config) *Cache[K, V] {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Cache[K, V]{
		maxEntries:   cfg.MaxEntries,
		items:        make(map[Key[K]]*list.Element),
		lru:          list.New(),
		ctx:          ctx,
		cancel:       cancel,
		cleanupEvery: cfg.CleanupInterval,
		now:          time.Now,
	}

	if c.cleanupEvery > 0 {
		c.wg.Add(1)
		go c.expiryLoop()
	}

	return c
}

// Close stops background goroutines and prevents further mutation.
// Close is safe to call multiple times.
func (c *Cache[K, V]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
	return nil
}

// Set writes or overwrites a key and resets its TTL. ttl <= 0 means no expiration.
func (c *Cache[K, V]) Set(key Key[K], value V, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.storeLocked(key, value, ttl, c.now())
	return nil
}

// Get reads a key. Absent and expired entries both report errs.ErrNotFound.
func (c *Cache[K, V]) Get(key Key[K]) (V, error) {
	var zero V
	now := c.now()

	c.mu.RLock()
	el, ok := c.items[key]
	if !ok {
		c.mu.RUnlock()
		return zero, errs.ErrNotFound
	}
	c.mu.RUnlock()

	// Moving the node and dropping expired entries both need the write lock;
	// the key may have changed between the two locks, so look it up again.
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok = c.items[key]
	if !ok {
		return zero, errs.ErrNotFound
	}
	e := el.Value.(*entry[K, V])
	if e.expired(now) {
		c.deleteLocked(key)
		return zero, errs.ErrNotFound
	}

	c.lru.MoveToFront(el)
	return e.value, nil
}

// Update atomically replaces the value of an existing, unexpired key with fn(current).
// If fn fails nothing is written and its error is returned. The TTL is reset to ttl.
func (c *Cache[K, V]) Update(key Key[K], ttl time.Duration, fn func(V) (V, error)) (V, error) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return zero, ErrClosed
	}

	now := c.now()
	el, ok := c.items[key]
	if !ok {
		return zero, errs.ErrNotFound
	}
	e := el.Value.(*entry[K, V])
	if e.expired(now) {
		c.deleteLocked(key)
		return zero, errs.ErrNotFound
	}

	next, err := fn(e.value)
	if err != nil {
		return zero, err
	}
	c.storeLocked(key, next, ttl, now)
	return next, nil
}

// Drop removes a key if present. Dropping an absent key is not an error.
func (c *Cache[K, V]) Drop(key Key[K]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	c.deleteLocked(key)
	return nil
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys returns keys in MRU -> LRU order.
func (c *Cache[K, V]) Keys() []Key[K] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Key[K], 0, c.lru.Len())
	for el := c.lru.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry[K, V]).key)
	}
	return out
}

func (c *Cache[K, V]) storeLocked(key Key[K], value V, ttl time.Duration, now time.Time) {
	var expiresAt time.Time
	hasExpiry := ttl > 0
	if hasExpiry {
		expiresAt = now.Add(ttl)
	}

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.hasExpiry = hasExpiry
		e.expiresAt = expiresAt
		c.lru.MoveToFront(el)
		c.evictIfNeededLocked(now)
		return
	}

	el := c.lru.PushFront(&entry[K, V]{
		key:       key,
		value:     value,
		hasExpiry: hasExpiry,
		expiresAt: expiresAt,
	})
	c.items[key] = el
	c.evictIfNeededLocked(now)
}

func (c *Cache[K, V]) evictIfNeededLocked(now time.Time) {
	if c.maxEntries <= 0 {
		return
	}

	// Expired entries go first so live keys keep their LRU position.
	c.deleteExpiredLocked(now)

	for len(c.items) > c.maxEntries {
		el := c.lru.Back()
		if el == nil {
			return
		}
		c.deleteLocked(el.Value.(*entry[K, V]).key)
	}
}

func (c *Cache[K, V]) deleteLocked(key Key[K]) {
	el, ok := c.items[key]
	if !ok {
		return
	}
	delete(c.items, key)
	c.lru.Remove(el)
}

// deleteExpiredLocked is a full O(n) scan.
func (c *Cache[K, V]) deleteExpiredLocked(now time.Time) int {
	removed := 0
	for key, el := range c.items {
		if el.Value.(*entry[K, V]).expired(now) {
			delete(c.items, key)
			c.lru.Remove(el)
			removed++
		}
	}
	return removed
}
