package bundle

import (
	"context"

	"github.com/c3p0-box/translations/erm"
	"github.com/c3p0-box/translations/locale"
	"github.com/c3p0-box/translations/store"
)

// Resolve returns the templates of bundleID for loc.
//
// Without fallback only the exact suffix of loc is fetched and its absence is
// a ResourceNotFound error. With fallback every suffix of the chain is fetched
// from least to most specific and merged, later entries replacing earlier ones;
// absent suffixes contribute nothing.
func Resolve(ctx context.Context, s store.Store, bundleID string, loc locale.Locale, allowFallback bool) (store.Templates, error) {
	if !allowFallback {
		suffix := loc.ExactSuffix()
		t, found, err := s.Fetch(ctx, bundleID, suffix)
		if err != nil {
			return nil, erm.StoreFailure(bundleID, err)
		}
		if !found {
			return nil, erm.ResourceNotFound(bundleID, suffix)
		}
		if t == nil {
			t = store.Templates{}
		}
		return t, nil
	}

	acc := store.Templates{}
	for _, suffix := range loc.Chain() {
		t, found, err := s.Fetch(ctx, bundleID, suffix)
		if err != nil {
			return nil, erm.StoreFailure(bundleID, err)
		}
		if found {
			acc.Overlay(t)
		}
	}
	return acc, nil
}
