package bundle

import (
	"context"

	"github.com/c3p0-box/translations/locale"
)

// Service loads bundles for the locale carried by a request context.
type Service struct {
	cache    *Cache
	cfg      Configuration
	fallback locale.Locale
}

// NewService creates a service loading through cache with cfg. fallback is
// used when a context carries no locale.
func NewService(cache *Cache, cfg Configuration, fallback locale.Locale) *Service {
	if cache == nil {
		cache = GetInstance()
	}
	return &Service{cache: cache, cfg: cfg, fallback: fallback}
}

// Get returns the bundle of set for the locale of ctx.
func (s *Service) Get(ctx context.Context, set *OperationSet) (*Bundle, error) {
	loc, ok := locale.FromContext(ctx)
	if !ok {
		loc = s.fallback
	}
	return s.cache.Get(ctx, set, loc, s.cfg)
}

// GetFor returns the bundle of set for loc.
func (s *Service) GetFor(ctx context.Context, set *OperationSet, loc locale.Locale) (*Bundle, error) {
	return s.cache.Get(ctx, set, loc, s.cfg)
}

// Configuration returns the configuration bundles are loaded with.
func (s *Service) Configuration() Configuration {
	return s.cfg
}

// Fallback returns the locale used for contexts without one.
func (s *Service) Fallback() locale.Locale {
	return s.fallback
}

// Cache returns the cache of the service.
func (s *Service) Cache() *Cache {
	return s.cache
}
