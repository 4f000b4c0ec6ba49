package limiter

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hugo-r/server-challenge/internal/cache"
	"github.com/hugo-r/server-challenge/internal/errs"
)

const limiterSegment = "login-limits"

// Store is the cache a Memory limiter keeps its per-(user, ip) state in.
type Store = cache.Cache[string, *Bucket]

// Bucket is the limiter state of one (username, ip) pair.
type Bucket struct {
	fails        *rate.Limiter
	blockedUntil time.Time
}

// Memory is an in-process limiter: a token bucket of maxFails failures
// refilled over window, and a lockout of blockFor once the bucket is drained.
// Idle buckets age out of the store after window+blockFor.
type Memory struct {
	store    *Store
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time

	mu sync.Mutex
}

// NewMemory constructs an in-memory limiter over store.
func NewMemory(store *Store, window time.Duration, maxFails int, blockFor time.Duration) *Memory {
	return &Memory{
		store:    store,
		window:   window,
		maxFails: maxFails,
		blockFor: blockFor,
		now:      time.Now,
	}
}

func bucketKey(username string, ipHash []byte) cache.Key[string] {
	return cache.Key[string]{Segment: limiterSegment, ID: username + "|" + hex.EncodeToString(ipHash)}
}

func (l *Memory) newBucket() *Bucket {
	every := l.window / time.Duration(l.maxFails)
	return &Bucket{fails: rate.NewLimiter(rate.Every(every), l.maxFails)}
}

func (l *Memory) idleTTL() time.Duration { return l.window + l.blockFor }

// Allow reports whether (username, ip) is outside a lockout.
func (l *Memory) Allow(_ context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.store.Get(bucketKey(username, ipHash))
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return true, 0, nil
	case err != nil:
		return false, 0, fmt.Errorf("load bucket: %w", err)
	}

	now := l.now()
	if b.blockedUntil.After(now) {
		return false, b.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success forgets every failure of (username, ip).
func (l *Memory) Success(_ context.Context, username string, ipHash []byte) error {
	return l.store.Drop(bucketKey(username, ipHash))
}

// Failure spends one token; an empty bucket starts a lockout.
func (l *Memory) Failure(_ context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := bucketKey(username, ipHash)
	b, err := l.store.Get(key)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		b = l.newBucket()
	case err != nil:
		return false, 0, fmt.Errorf("load bucket: %w", err)
	}

	now := l.now()
	b.fails.AllowN(now, 1)

	blocked := false
	if b.fails.TokensAt(now) < 1 {
		b.blockedUntil = now.Add(l.blockFor)
		b.fails = l.newBucket().fails
		blocked = true
	}

	if err := l.store.Set(key, b, l.idleTTL()); err != nil {
		return false, 0, fmt.Errorf("store bucket: %w", err)
	}
	if blocked {
		return true, l.blockFor, nil
	}
	return false, 0, nil
}
