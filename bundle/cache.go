package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/c3p0-box/translations/erm"
	"github.com/c3p0-box/translations/locale"
	"github.com/c3p0-box/translations/store"
)

type cacheKey struct {
	set    *OperationSet
	locale locale.Locale
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%p/%s/%s/%s", k.set, k.locale.Language, k.locale.Region, k.locale.Variant)
}

// Cache holds one Bundle per (OperationSet, Locale). A Bundle is built at most
// once: concurrent callers for the same key wait for the build in flight and
// share its result. Failed builds are not cached. The Configuration is not
// part of the key; the first successful build of a key wins.
//
// SetStore and Reset start a new generation: builds started before them
// still answer their own callers but are never published.
type Cache struct {
	mu      sync.RWMutex
	store   store.Store
	gen     uint64
	bundles map[cacheKey]*Bundle
	group   singleflight.Group
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger of the cache. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCache creates a cache loading templates from s.
func NewCache(s store.Store, opts ...Option) *Cache {
	c := &Cache{
		store:   s,
		bundles: make(map[cacheKey]*Bundle),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("name", "bundle.Cache"))
	return c
}

// Store returns the template store of the cache.
func (c *Cache) Store() store.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

// SetStore replaces the template store and drops every cached bundle.
func (c *Cache) SetStore(s store.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = s
	c.gen++
	c.bundles = make(map[cacheKey]*Bundle)
}

// Get returns the bundle of set for loc, building it on first use.
//
// The build runs detached from ctx so that a cancelled caller does not fail
// the others waiting on it; ctx only bounds how long this caller waits.
func (c *Cache) Get(ctx context.Context, set *OperationSet, loc locale.Locale, cfg Configuration) (*Bundle, error) {
	if set == nil {
		return nil, erm.Invalid("operation set must not be nil", nil)
	}
	k := cacheKey{set: set, locale: loc}
	b, gen, ok := c.lookup(k)
	if ok {
		return b, nil
	}

	ch := c.group.DoChan(fmt.Sprintf("%d/%s", gen, k), func() (interface{}, error) {
		if b, _, ok := c.lookup(k); ok {
			return b, nil
		}
		return c.build(context.WithoutCancel(ctx), k, gen, cfg)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Bundle), nil
	}
}

// lookup returns the cached bundle of k and the current generation.
func (c *Cache) lookup(k cacheKey) (*Bundle, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bundles[k]
	return b, c.gen, ok
}

func (c *Cache) build(ctx context.Context, k cacheKey, gen uint64, cfg Configuration) (*Bundle, error) {
	start := time.Now()
	log := c.logger.With(
		slog.String("bundle", k.set.BundleID()),
		slog.String("locale", k.locale.String()),
	)
	log.DebugContext(ctx, "building bundle", slog.Bool("fallback", cfg.AllowFallback))

	s := c.Store()
	if s == nil {
		return nil, erm.Invalid("cache has no template store", nil)
	}
	templates, err := Resolve(ctx, s, k.set.BundleID(), k.locale, cfg.AllowFallback)
	if err == nil {
		var b *Bundle
		if b, err = build(k.set, k.locale, templates, cfg); err == nil {
			c.mu.Lock()
			published := c.gen == gen
			if published {
				c.bundles[k] = b
			}
			c.mu.Unlock()

			log.InfoContext(ctx, "bundle ready",
				slog.Bool("published", published),
				slog.Int("operations", b.Len()),
				slog.Duration("duration", time.Since(start)),
			)
			return b, nil
		}
	}

	log.WarnContext(ctx, "bundle build failed",
		slog.String("kind", erm.KindOf(err).String()),
		slog.String("error", err.Error()),
		slog.Duration("duration", time.Since(start)),
	)
	if stack := erm.FormatStack(erm.Wrap(err)); stack != "" {
		log.DebugContext(ctx, "bundle build stack", slog.String("stack", stack))
	}
	return nil, err
}

// Len returns the number of cached bundles.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.bundles)
}

// Reset drops every cached bundle. Builds in flight still answer their
// callers but their bundles are not cached.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.bundles = make(map[cacheKey]*Bundle)
	c.logger.Debug("cache reset")
}
