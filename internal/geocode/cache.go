package geocode

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/safar/bookswap/internal/geo"
)

const DefaultTimeout = 5 * time.Second

// Cache resolves city names through a Lookup and remembers every successful answer
// for the lifetime of the process. Failures are not remembered.
type Cache struct {
	lookup  Lookup
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	points map[string]geo.Point
	group  singleflight.Group
}

type Option func(*Cache)

func WithTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewCache(lookup Lookup, opts ...Option) *Cache {
	c := &Cache{
		lookup:  lookup,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		points:  make(map[string]geo.Point),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func cacheKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ResolveCity returns the coordinates of name, or nil when name is blank or cannot be resolved.
// Concurrent misses for the same name share one lookup.
func (c *Cache) ResolveCity(ctx context.Context, name string) *geo.Point {
	key := cacheKey(name)
	if key == "" {
		return nil
	}

	c.mu.RLock()
	p, ok := c.points[key]
	c.mu.RUnlock()
	if ok {
		return &p
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		point, err := c.lookup.Lookup(lookupCtx, strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.points[key] = point
		c.mu.Unlock()

		c.logger.Debug("city cached", "city", key, "cached", c.Len())

		return point, nil
	})
	if err != nil {
		c.logger.Warn("city lookup failed", "city", key, "error", err)
		return nil
	}

	point := v.(geo.Point)
	return &point
}

// Len reports how many names are cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.points)
}
