package service

import (
	"testing"

	"github.com/hugo-r/server-challenge/internal/cache"
	"github.com/hugo-r/server-challenge/internal/limiter"
)

func newLimiterStore(t *testing.T) *limiter.Store {
	t.Helper()
	c := cache.New[string, *limiter.Bucket](cache.Config{})
	t.Cleanup(func() { _ = c.Close() })
	return c
}
