package env

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type logFormat string

// UnmarshalText implements encoding.TextUnmarshaler for tests.
func (f *logFormat) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(strings.ToLower(string(b)))
	if s != "text" && s != "json" {
		return errors.New("log format must be text or json")
	}
	*f = logFormat(s)
	return nil
}

func TestReadEnv_Defaults(t *testing.T) {
	type Config struct {
		Dir  string `env:"TRANSLATIONS_DIR" env-default:"translations"`
		Port int    `env:"HTTP_PORT" env-default:"8080"`
	}

	var cfg Config
	if err := ReadEnv(&cfg); err != nil {
		t.Fatalf("ReadEnv error: %v", err)
	}
	if cfg.Dir != "translations" || cfg.Port != 8080 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestReadEnv_Required(t *testing.T) {
	type Config struct {
		DSN string `env:"TRANSLATIONS_DSN" env-required:"true"`
	}
	var cfg Config
	err := ReadEnv(&cfg)
	if err == nil {
		t.Fatal("expected error for required field, got nil")
	}
	if !strings.Contains(err.Error(), "TRANSLATIONS_DSN") {
		t.Fatalf("error should name the variable: %v", err)
	}
}

func TestReadEnv_WithEnvValues(t *testing.T) {
	t.Setenv("TRANSLATIONS_DIR", "/srv/i18n")
	t.Setenv("HTTP_PORT", "9090")

	type Config struct {
		Dir  string `env:"TRANSLATIONS_DIR" env-default:"translations"`
		Port int    `env:"HTTP_PORT" env-default:"8080"`
	}

	var cfg Config
	if err := ReadEnv(&cfg); err != nil {
		t.Fatalf("ReadEnv error: %v", err)
	}
	if cfg.Dir != "/srv/i18n" || cfg.Port != 9090 {
		t.Fatalf("unexpected values: %+v", cfg)
	}
}

func TestReadEnv_SliceAndMap(t *testing.T) {
	t.Setenv("LOCALES", "en, fr_FR ,de")
	t.Setenv("LIMITS", "en:10,fr:20")
	t.Setenv("BUNDLES", "messages;errors")

	type Config struct {
		Locales []string       `env:"LOCALES"`
		Limits  map[string]int `env:"LIMITS"`
		Bundles []string       `env:"BUNDLES" env-separator:";"`
	}
	var cfg Config
	if err := ReadEnv(&cfg); err != nil {
		t.Fatalf("ReadEnv error: %v", err)
	}

	if len(cfg.Locales) != 3 || cfg.Locales[1] != "fr_FR" {
		t.Fatalf("unexpected slice: %#v", cfg.Locales)
	}
	if len(cfg.Limits) != 2 || cfg.Limits["fr"] != 20 {
		t.Fatalf("unexpected map: %#v", cfg.Limits)
	}
	if len(cfg.Bundles) != 2 || cfg.Bundles[1] != "errors" {
		t.Fatalf("unexpected custom-sep slice: %#v", cfg.Bundles)
	}
}

func TestReadEnv_TimeURLDuration(t *testing.T) {
	t.Setenv("RELEASED", "2024-03-01T10:00:00Z")
	t.Setenv("FREEZE", "2024-03-15")
	t.Setenv("UPSTREAM", "https://example.com/bundles?v=2")
	t.Setenv("SHUTDOWN", "15s")
	t.Setenv("TZ_NAME", "UTC")

	var cfg struct {
		Released time.Time      `env:"RELEASED"`
		Freeze   time.Time      `env:"FREEZE" env-layout:"2006-01-02"`
		Shutdown time.Duration  `env:"SHUTDOWN"`
		Upstream url.URL        `env:"UPSTREAM"`
		Zone     *time.Location `env:"TZ_NAME"`
	}

	if err := ReadEnv(&cfg); err != nil {
		t.Fatalf("ReadEnv error: %v", err)
	}
	if cfg.Released.UTC().Format(time.RFC3339) != "2024-03-01T10:00:00Z" {
		t.Fatalf("unexpected Released: %v", cfg.Released)
	}
	if cfg.Freeze.Day() != 15 || cfg.Freeze.Month() != time.March {
		t.Fatalf("unexpected Freeze: %v", cfg.Freeze)
	}
	if cfg.Shutdown != 15*time.Second {
		t.Fatalf("unexpected Shutdown: %v", cfg.Shutdown)
	}
	if cfg.Upstream.Host != "example.com" || cfg.Upstream.Query().Get("v") != "2" {
		t.Fatalf("unexpected URL: %+v", cfg.Upstream)
	}
	if cfg.Zone == nil || cfg.Zone.String() != "UTC" {
		t.Fatalf("unexpected Zone: %v", cfg.Zone)
	}
}

func TestUpdateEnv_OnlyUpdatable(t *testing.T) {
	t.Setenv("HTTP_HOST", "a")
	t.Setenv("LOG_LEVEL", "info")

	type Config struct {
		Host  string `env:"HTTP_HOST"`
		Level string `env:"LOG_LEVEL" env-upd:"true"`
	}
	var cfg Config
	if err := ReadEnv(&cfg); err != nil {
		t.Fatalf("ReadEnv error: %v", err)
	}

	t.Setenv("HTTP_HOST", "b")
	t.Setenv("LOG_LEVEL", "debug")
	if err := UpdateEnv(&cfg); err != nil {
		t.Fatalf("UpdateEnv error: %v", err)
	}
	if cfg.Host != "a" {
		t.Fatalf("Host should not update: %q", cfg.Host)
	}
	if cfg.Level != "debug" {
		t.Fatalf("Level should update: %q", cfg.Level)
	}
}

func TestReadEnv_AltEnvNames(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://alt")
	type Config struct {
		DSN string `env:"TRANSLATIONS_DSN,DATABASE_URL"`
	}
	var cfg Config
	if err := ReadEnv(&cfg); err != nil {
		t.Fatalf("ReadEnv error: %v", err)
	}
	if cfg.DSN != "postgres://alt" {
		t.Fatalf("unexpected alt env value: %q", cfg.DSN)
	}

	t.Setenv("TRANSLATIONS_DSN", "postgres://main")
	if err := ReadEnv(&cfg); err != nil {
		t.Fatalf("ReadEnv error: %v", err)
	}
	if cfg.DSN != "postgres://main" {
		t.Fatalf("first name should win when both set: %q", cfg.DSN)
	}
}

func TestReadEnv_TextUnmarshaler(t *testing.T) {
	t.Setenv("LOG_FORMAT", "  JSON ")
	type Config struct {
		Format logFormat `env:"LOG_FORMAT"`
	}
	var cfg Config
	if err := ReadEnv(&cfg); err != nil {
		t.Fatalf("ReadEnv error: %v", err)
	}
	if cfg.Format != "json" {
		t.Fatalf("unexpected unmarshaled value: %q", cfg.Format)
	}

	t.Setenv("LOG_FORMAT", "xml")
	if err := ReadEnv(&cfg); err == nil {
		t.Fatal("expected error from unmarshaler, got nil")
	}
}

func TestNestedStructWithPrefix(t *testing.T) {
	t.Setenv("HTTP_HOST", "0.0.0.0")
	t.Setenv("HTTP_PORT", "8081")
	t.Setenv("STORE_SQL_TABLE", "messages")

	type SQL struct {
		Table string `env:"TABLE" env-default:"translations"`
	}
	type Store struct {
		SQL SQL    `env-prefix:"SQL_"`
		Dir string `env:"DIR" env-default:"translations"`
	}
	type HTTP struct {
		Host string `env:"HOST"`
		Port int    `env:"PORT"`
	}
	type Config struct {
		HTTP  HTTP  `env-prefix:"HTTP_"`
		Store Store `env-prefix:"STORE_"`
	}

	var cfg Config
	if err := ReadEnv(&cfg); err != nil {
		t.Fatalf("ReadEnv error: %v", err)
	}
	if cfg.HTTP.Host != "0.0.0.0" || cfg.HTTP.Port != 8081 {
		t.Fatalf("unexpected HTTP config: %+v", cfg.HTTP)
	}
	if cfg.Store.SQL.Table != "messages" || cfg.Store.Dir != "translations" {
		t.Fatalf("unexpected Store config: %+v", cfg.Store)
	}
}

func TestParseValue_Errors(t *testing.T) {
	tests := []struct {
		name   string
		envVar string
		value  string
		target interface{}
	}{
		{"int_invalid", "TEST_INT", "not_a_number", &struct {
			Field int `env:"TEST_INT"`
		}{}},
		{"int8_overflow", "TEST_INT8", "300", &struct {
			Field int8 `env:"TEST_INT8"`
		}{}},
		{"uint_negative", "TEST_UINT", "-1", &struct {
			Field uint `env:"TEST_UINT"`
		}{}},
		{"float_invalid", "TEST_FLOAT", "not_float", &struct {
			Field float64 `env:"TEST_FLOAT"`
		}{}},
		{"bool_invalid", "TEST_BOOL", "maybe", &struct {
			Field bool `env:"TEST_BOOL"`
		}{}},
		{"duration_invalid", "TEST_DUR", "soon", &struct {
			Field time.Duration `env:"TEST_DUR"`
		}{}},
		{"url_invalid", "TEST_URL", "://nope", &struct {
			Field url.URL `env:"TEST_URL"`
		}{}},
		{"location_invalid", "TEST_LOC", "Invalid/Location", &struct {
			Field *time.Location `env:"TEST_LOC"`
		}{}},
		{"slice_element", "TEST_SLICE", "1,x,3", &struct {
			Field []int `env:"TEST_SLICE"`
		}{}},
		{"map_malformed", "TEST_MAP", "k1,k2:2", &struct {
			Field map[string]int `env:"TEST_MAP"`
		}{}},
		{"unsupported", "TEST_COMPLEX", "1+2i", &struct {
			Field complex64 `env:"TEST_COMPLEX"`
		}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.value)
			if err := ReadEnv(tt.target); err == nil {
				t.Errorf("expected error for %s, got nil", tt.name)
			}
		})
	}
}

type bundleList []string

func (b *bundleList) SetValue(s string) error {
	if s == "" {
		return errors.New("cannot be empty")
	}
	*b = strings.Fields(s)
	return nil
}

type checkedConfig struct {
	Port    int `env:"CHECK_PORT"`
	checked bool
}

func (c *checkedConfig) Update() error {
	if c.Port <= 0 {
		return errors.New("port must be positive")
	}
	c.checked = true
	return nil
}

func TestSetterAndUpdater(t *testing.T) {
	t.Setenv("BUNDLE_LIST", "messages errors")
	var cfg struct {
		Bundles bundleList `env:"BUNDLE_LIST"`
	}
	if err := ReadEnv(&cfg); err != nil {
		t.Fatalf("ReadEnv error: %v", err)
	}
	if len(cfg.Bundles) != 2 || cfg.Bundles[1] != "errors" {
		t.Fatalf("unexpected setter value: %v", cfg.Bundles)
	}

	t.Setenv("CHECK_PORT", "80")
	c := &checkedConfig{}
	if err := ReadEnv(c); err != nil {
		t.Fatalf("ReadEnv error: %v", err)
	}
	if !c.checked {
		t.Fatal("Update() was not called")
	}

	t.Setenv("CHECK_PORT", "0")
	if err := ReadEnv(&checkedConfig{}); err == nil {
		t.Fatal("expected error from Update, got nil")
	}
}

func TestReadEnv_NonStructError(t *testing.T) {
	var notStruct string
	if err := ReadEnv(&notStruct); err == nil {
		t.Fatal("expected error for non-struct, got nil")
	}
	if err := ReadEnv(nil); err == nil {
		t.Fatal("expected error for nil, got nil")
	}
}

func TestParseSlice_BytesAndEmpty(t *testing.T) {
	t.Setenv("SECRET", "hello")
	t.Setenv("EMPTY_LIST", "")

	var cfg struct {
		Secret []byte   `env:"SECRET"`
		Items  []string `env:"EMPTY_LIST"`
	}
	if err := ReadEnv(&cfg); err != nil {
		t.Fatalf("ReadEnv error: %v", err)
	}
	if string(cfg.Secret) != "hello" || len(cfg.Items) != 0 {
		t.Fatalf("unexpected values: %+v", cfg)
	}
}

func TestBooleanVariations(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"false", false},
		{"False", false},
		{"0", false},
	}

	for _, tt := range tests {
		t.Run("bool_"+tt.value, func(t *testing.T) {
			t.Setenv("IGNORE_EXTRA", tt.value)
			var cfg struct {
				IgnoreExtra bool `env:"IGNORE_EXTRA"`
			}
			if err := ReadEnv(&cfg); err != nil {
				t.Fatalf("ReadEnv error for %s: %v", tt.value, err)
			}
			if cfg.IgnoreExtra != tt.expected {
				t.Fatalf("unexpected bool value for %s: got %v, want %v", tt.value, cfg.IgnoreExtra, tt.expected)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	if err := os.WriteFile(file, []byte("ENV_TEST_DIR=from-file\nENV_TEST_PORT=7000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_TEST_PORT", "7001")
	t.Cleanup(func() { os.Unsetenv("ENV_TEST_DIR") })

	if err := Load(file, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	var cfg struct {
		Dir  string `env:"ENV_TEST_DIR"`
		Port int    `env:"ENV_TEST_PORT"`
	}
	if err := ReadEnv(&cfg); err != nil {
		t.Fatalf("ReadEnv error: %v", err)
	}
	if cfg.Dir != "from-file" {
		t.Fatalf("Dir = %q, want value from file", cfg.Dir)
	}
	if cfg.Port != 7001 {
		t.Fatalf("Port = %d, existing variable must win", cfg.Port)
	}
}

func TestLoadNoFiles(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := Load(); err != nil {
		t.Fatalf("Load without .env: %v", err)
	}
}
