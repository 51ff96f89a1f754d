package bundle

import (
	"context"
	"sync"

	"github.com/c3p0-box/translations/locale"
	"github.com/c3p0-box/translations/store"
)

var (
	instance *Cache
	once     sync.Once
)

// GetInstance returns the process-wide cache used by the package-level
// functions. It starts with an empty in-memory store.
func GetInstance() *Cache {
	once.Do(func() {
		instance = NewCache(store.NewMapStore())
	})
	return instance
}

// SetDefaultStore sets the template store of the process-wide cache and
// drops its bundles.
func SetDefaultStore(s store.Store) {
	GetInstance().SetStore(s)
}

// Load returns the bundle of set for loc from the process-wide cache.
func Load(ctx context.Context, set *OperationSet, loc locale.Locale, cfg Configuration) (*Bundle, error) {
	return GetInstance().Get(ctx, set, loc, cfg)
}

// LoadTemplates builds a bundle from an explicit template map. Neither the
// store nor the cache is involved, so every call builds a new bundle.
func LoadTemplates(set *OperationSet, loc locale.Locale, templates store.Templates, cfg Configuration) (*Bundle, error) {
	return build(set, loc, templates.Clone(), cfg)
}

// Invoke renders the operation name of b with args.
func Invoke(b *Bundle, name string, args ...interface{}) (string, error) {
	return b.Render(name, args...)
}

// ResetCache drops every bundle of the process-wide cache.
func ResetCache() {
	GetInstance().Reset()
}
