package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/c3p0-box/translations/bundle"
	"github.com/c3p0-box/translations/env"
	"github.com/c3p0-box/translations/locale"
)

type logFormat string

func (f *logFormat) SetValue(s string) error {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "text", "json":
		*f = logFormat(v)
		return nil
	default:
		return fmt.Errorf("unknown log format %q", s)
	}
}

type httpConfig struct {
	Host        string   `env:"HOST" env-default:"0.0.0.0"`
	Port        string   `env:"PORT" env-default:"8000"`
	CORSOrigins []string `env:"CORS_ORIGINS" env-default:"*"`
}

type config struct {
	TranslationsDir string   `env:"TRANSLATIONS_DIR" env-default:"translations"`
	DSN             string   `env:"TRANSLATIONS_DSN,DATABASE_URL"`
	Table           string   `env:"TRANSLATIONS_TABLE" env-default:"translations"`
	SchemaDir       string   `env:"SCHEMA_DIR" env-default:"schemas"`
	Locales         []string `env:"TRANSLATIONS_LOCALES"`
	Fallback        string   `env:"FALLBACK_LOCALE" env-default:"en"`

	IgnoreMissing       bool `env:"IGNORE_MISSING"`
	IgnoreExtra         bool `env:"IGNORE_EXTRA"`
	IgnoreArityMismatch bool `env:"IGNORE_ARITY_MISMATCH"`
	Exact               bool `env:"EXACT_LOCALE"`

	LogFormat logFormat  `env:"LOG_FORMAT" env-default:"text"`
	LogLevel  slog.Level `env:"LOG_LEVEL" env-default:"info"`

	HTTP httpConfig `env-prefix:"HTTP_"`
}

// readConfig loads .env files and reads the process configuration.
func readConfig() (*config, error) {
	if err := env.Load(); err != nil {
		return nil, err
	}
	cfg := &config{}
	if err := env.ReadEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *config) configuration() bundle.Configuration {
	return bundle.Configuration{
		IgnoreMissing:       c.IgnoreMissing,
		IgnoreExtra:         c.IgnoreExtra,
		IgnoreArityMismatch: c.IgnoreArityMismatch,
		AllowFallback:       !c.Exact,
	}
}

// locales parses the configured locales; none means the root locale only.
func (c *config) locales() ([]locale.Locale, error) {
	if len(c.Locales) == 0 {
		return []locale.Locale{locale.Root}, nil
	}
	out := make([]locale.Locale, 0, len(c.Locales))
	for _, s := range c.Locales {
		if s == "root" {
			out = append(out, locale.Root)
			continue
		}
		l, err := locale.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func newLogger(w io.Writer, format logFormat, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
