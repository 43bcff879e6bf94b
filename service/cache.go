package service

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// buildCache memoizes finished builds by curve name and quote fingerprint.
type buildCache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

func newBuildCache(maxCost int64, ttl time.Duration) (*buildCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &buildCache{c: c, ttl: ttl}, nil
}

func (c *buildCache) get(key string) (*Snapshot, bool) {
	v, ok := c.c.Get(key)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Snapshot)
	return s, ok
}

// set stores the snapshot and waits for the write buffer so the next get sees it.
func (c *buildCache) set(key string, s *Snapshot) {
	c.c.SetWithTTL(key, s, 1, c.ttl)
	c.c.Wait()
}

func (c *buildCache) close() { c.c.Close() }
