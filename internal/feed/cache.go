package feed

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/member-qa/internal/model"
)

// FetchError reports that the feed could not be loaded.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "Failed to fetch messages: " + e.Err.Error() }

func (e *FetchError) Unwrap() error { return e.Err }

// Cache holds the first successfully fetched feed. Failed fetches are not
// cached, and there is no invalidation: the feed lives until the process exits.
type Cache struct {
	source Source
	group  singleflight.Group

	mu       sync.RWMutex
	messages []model.Message
	loaded   bool
}

// NewCache creates an empty cache in front of source.
func NewCache(source Source) *Cache {
	return &Cache{source: source}
}

// Messages returns the cached feed, fetching it on first use. Concurrent
// first calls share a single fetch.
func (c *Cache) Messages(ctx context.Context) ([]model.Message, error) {
	c.mu.RLock()
	if c.loaded {
		msgs := c.messages
		c.mu.RUnlock()
		return msgs, nil
	}
	c.mu.RUnlock()

	// The shared fetch outlives any single caller; each caller still stops
	// waiting when its own context ends.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("feed", func() (any, error) {
		c.mu.RLock()
		if c.loaded {
			msgs := c.messages
			c.mu.RUnlock()
			return msgs, nil
		}
		c.mu.RUnlock()

		msgs, err := c.source.Fetch(fetchCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.messages = msgs
		c.loaded = true
		c.mu.Unlock()

		zap.L().Info("feed: cached messages", zap.Int("count", len(msgs)))
		return msgs, nil
	})

	select {
	case <-ctx.Done():
		return nil, &FetchError{Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, &FetchError{Err: res.Err}
		}
		return res.Val.([]model.Message), nil
	}
}

// Loaded reports whether the feed has been fetched.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}
