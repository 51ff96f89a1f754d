package erm

import (
	"embed"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var catalogues embed.FS

var (
	initOnce   sync.Once
	bundle     *i18n.Bundle
	localizers sync.Map
)

func initializeMessages() {
	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := catalogues.ReadDir("locales")
	if err != nil {
		panic("erm: cannot list message catalogues: " + err.Error())
	}
	for _, entry := range entries {
		if _, err := bundle.LoadMessageFileFS(catalogues, "locales/"+entry.Name()); err != nil {
			panic("erm: cannot load message catalogue " + entry.Name() + ": " + err.Error())
		}
	}
}

// Bundle returns the go-i18n bundle holding the error catalogues.
func Bundle() *i18n.Bundle {
	initOnce.Do(initializeMessages)
	return bundle
}

// Localizer returns a localizer for the given language preferences, in order.
// Each entry may be a tag ("fr-CA") or an Accept-Language value. English is
// used when nothing matches. Localizers are cached and safe for concurrent use.
func Localizer(langs ...string) *i18n.Localizer {
	b := Bundle()
	key := strings.Join(langs, "|")
	if l, ok := localizers.Load(key); ok {
		return l.(*i18n.Localizer)
	}
	l, _ := localizers.LoadOrStore(key, i18n.NewLocalizer(b, langs...))
	return l.(*i18n.Localizer)
}

// Languages returns the languages the error catalogues are available in.
func Languages() []language.Tag {
	return Bundle().LanguageTags()
}
