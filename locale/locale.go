// Package locale models the language/region/variant key templates are resolved
// for, and the suffix chains used to search a template store.
package locale

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Locale identifies a set of templates. Any field may be empty.
type Locale struct {
	Language string
	Region   string
	Variant  string
}

// Root is the empty locale; its templates are the base of every fallback chain.
var Root = Locale{}

// New returns a Locale with the language lower-cased and the region and
// variant upper-cased, so that locales probing the same suffixes are equal.
func New(lang, region, variant string) Locale {
	return Locale{
		Language: strings.ToLower(strings.TrimSpace(lang)),
		Region:   strings.ToUpper(strings.TrimSpace(region)),
		Variant:  strings.ToUpper(strings.TrimSpace(variant)),
	}
}

// Parse parses "fr", "fr_FR", "fr-FR" or "ja_JP_JP". An empty string yields Root.
func Parse(s string) (Locale, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Root, nil
	}

	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	if len(parts) == 0 || len(parts) > 3 {
		return Root, fmt.Errorf("locale: cannot parse %q", s)
	}
	for _, p := range parts {
		for _, r := range p {
			if !isAlnum(r) {
				return Root, fmt.Errorf("locale: invalid character %q in %q", r, s)
			}
		}
	}

	l := Locale{}
	l.Language = parts[0]
	if len(parts) > 1 {
		l.Region = parts[1]
	}
	if len(parts) > 2 {
		l.Variant = parts[2]
	}
	return New(l.Language, l.Region, l.Variant), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Locale {
	l, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return l
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// FromTag converts a BCP 47 tag. The region is kept only when the tag states
// it explicitly, so "fr" does not become "fr_FR".
func FromTag(tag language.Tag) Locale {
	if tag == language.Und {
		return Root
	}
	base, _ := tag.Base()
	l := Locale{Language: base.String()}
	if region, conf := tag.Region(); conf == language.Exact {
		l.Region = region.String()
	}
	if vs := tag.Variants(); len(vs) > 0 {
		l.Variant = vs[0].String()
	}
	return New(l.Language, l.Region, l.Variant)
}

// Tag returns the BCP 47 tag used for locale-sensitive formatting.
// Subtags unknown to BCP 47 are dropped; Root maps to language.Und.
func (l Locale) Tag() language.Tag {
	if l.Language == "" {
		return language.Und
	}
	if l.Region != "" {
		if tag, err := language.Parse(l.Language + "-" + l.Region); err == nil {
			return tag
		}
	}
	tag, err := language.Parse(l.Language)
	if err != nil {
		return language.Und
	}
	return tag
}

// IsZero reports whether l is Root.
func (l Locale) IsZero() bool {
	return l == Root
}

// String returns the underscore form, e.g. "fr_FR" or "ja_JP_JP".
func (l Locale) String() string {
	switch {
	case l.Variant != "":
		return l.Language + "_" + l.Region + "_" + l.Variant
	case l.Region != "":
		return l.Language + "_" + l.Region
	default:
		return l.Language
	}
}

// Chain returns the ascending suffix chain searched in fallback mode:
// "", "_lang", "_lang_region", "_lang_region_variant". A level is added only
// when every field before it is set.
func (l Locale) Chain() []string {
	chain := []string{""}
	if l.Language == "" {
		return chain
	}
	suffix := "_" + strings.ToLower(l.Language)
	chain = append(chain, suffix)
	if l.Region == "" {
		return chain
	}
	suffix += "_" + strings.ToLower(l.Region)
	chain = append(chain, suffix)
	if l.Variant == "" {
		return chain
	}
	return append(chain, suffix+"_"+strings.ToLower(l.Variant))
}

// ExactSuffix returns the single most specific suffix searched in strict mode.
func (l Locale) ExactSuffix() string {
	chain := l.Chain()
	return chain[len(chain)-1]
}

type contextKey struct{}

// WithLocale returns a copy of ctx carrying l as the current locale.
func WithLocale(ctx context.Context, l Locale) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the current locale carried by ctx, if any.
func FromContext(ctx context.Context) (Locale, bool) {
	if ctx == nil {
		return Root, false
	}
	l, ok := ctx.Value(contextKey{}).(Locale)
	return l, ok
}

// Negotiate picks the locale best matching an Accept-Language header among
// supported. It returns fallback when the header is empty or matches nothing.
func Negotiate(acceptLanguage string, fallback Locale, supported ...Locale) Locale {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	if len(supported) == 0 {
		return FromTag(tags[0])
	}

	candidates := make([]language.Tag, len(supported))
	for i, s := range supported {
		candidates[i] = s.Tag()
	}
	_, idx, conf := language.NewMatcher(candidates).Match(tags...)
	if conf == language.No {
		return fallback
	}
	return supported[idx]
}
