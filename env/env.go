// Package env fills configuration structs from environment variables.
//
// Fields are bound with struct tags:
//
//	env:"NAME,ALT_NAME"    variable names, the first one set wins
//	env-default:"value"    used when no variable is set
//	env-required:"true"    fail when no variable is set and there is no default
//	env-separator:";"      element separator for slices and maps (default ",")
//	env-layout:"2006-01-02" time.Time layout (default RFC 3339)
//	env-prefix:"APP_"      prefix applied to the variables of a nested struct
//	env-upd:"true"         field is refreshed by UpdateEnv
//
// Supported field types are strings, booleans, integers, floats,
// time.Duration, time.Time, *time.Location, url.URL, slices, maps and any
// type implementing Setter or encoding.TextUnmarshaler.
package env

import (
	"encoding"
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	tagName      = "env"
	tagDefault   = "env-default"
	tagRequired  = "env-required"
	tagSeparator = "env-separator"
	tagLayout    = "env-layout"
	tagPrefix    = "env-prefix"
	tagUpdate    = "env-upd"

	defaultSeparator = ","
)

// Setter is implemented by field types that parse their own value.
type Setter interface {
	SetValue(string) error
}

// Updater is implemented by configuration structs that post-process their
// values once every field is read.
type Updater interface {
	Update() error
}

var (
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	setterType          = reflect.TypeOf((*Setter)(nil)).Elem()
	durationType        = reflect.TypeOf(time.Duration(0))
	timeType            = reflect.TypeOf(time.Time{})
	urlType             = reflect.TypeOf(url.URL{})
	locationType        = reflect.TypeOf((*time.Location)(nil))
)

// Load reads .env files into the process environment without overriding
// variables that are already set. Missing files are skipped.
func Load(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("env: %w", err)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("env: loading %s: %w", strings.Join(existing, ", "), err)
	}
	return nil
}

// ReadEnv fills the struct pointed to by cfg from the environment.
func ReadEnv(cfg interface{}) error {
	return read(cfg, false)
}

// UpdateEnv refreshes the fields tagged env-upd:"true".
func UpdateEnv(cfg interface{}) error {
	return read(cfg, true)
}

type field struct {
	value     reflect.Value
	path      string
	names     []string
	def       *string
	required  bool
	separator string
	layout    string
	updatable bool
}

func read(cfg interface{}, onlyUpdatable bool) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("env: expected a pointer to a struct, got %T", cfg)
	}

	fields := collect(v.Elem(), "", "")
	for _, f := range fields {
		if onlyUpdatable && !f.updatable {
			continue
		}
		if err := f.apply(); err != nil {
			return err
		}
	}

	if u, ok := cfg.(Updater); ok {
		if err := u.Update(); err != nil {
			return fmt.Errorf("env: update: %w", err)
		}
	}
	return nil
}

// collect walks nested structs and returns every tagged leaf field.
func collect(v reflect.Value, prefix, path string) []field {
	var fields []field
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fv := v.Field(i)
		name := path + sf.Name

		if isNested(sf.Type) {
			fields = append(fields, collect(fv, prefix+sf.Tag.Get(tagPrefix), name+".")...)
			continue
		}

		tag, ok := sf.Tag.Lookup(tagName)
		if !ok {
			continue
		}
		f := field{
			value:     fv,
			path:      name,
			separator: defaultSeparator,
			layout:    time.RFC3339,
			required:  sf.Tag.Get(tagRequired) == "true",
			updatable: sf.Tag.Get(tagUpdate) == "true",
		}
		for _, n := range strings.Split(tag, ",") {
			if n = strings.TrimSpace(n); n != "" {
				f.names = append(f.names, prefix+n)
			}
		}
		if d, ok := sf.Tag.Lookup(tagDefault); ok {
			f.def = &d
		}
		if s := sf.Tag.Get(tagSeparator); s != "" {
			f.separator = s
		}
		if l := sf.Tag.Get(tagLayout); l != "" {
			f.layout = l
		}
		fields = append(fields, f)
	}
	return fields
}

// isNested reports whether t is a struct read field by field.
func isNested(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t == timeType || t == urlType {
		return false
	}
	p := reflect.PointerTo(t)
	return !p.Implements(textUnmarshalerType) && !p.Implements(setterType)
}

func (f field) apply() error {
	raw, found := "", false
	for _, n := range f.names {
		if s, ok := os.LookupEnv(n); ok {
			raw, found = s, true
			break
		}
	}
	if !found {
		switch {
		case f.def != nil:
			raw = *f.def
		case f.required:
			return fmt.Errorf("env: field %s is required but %s is not set", f.path, strings.Join(f.names, " or "))
		default:
			return nil
		}
	}

	if err := parseValue(f.value, raw, f.separator, f.layout); err != nil {
		return fmt.Errorf("env: field %s from %q: %w", f.path, raw, err)
	}
	return nil
}

func parseValue(v reflect.Value, raw, sep, layout string) error {
	switch v.Type() {
	case durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		v.SetInt(int64(d))
		return nil
	case timeType:
		ts, err := time.Parse(layout, raw)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(ts))
		return nil
	case urlType:
		u, err := url.Parse(raw)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(*u))
		return nil
	case locationType:
		loc, err := time.LoadLocation(raw)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(loc))
		return nil
	}

	if v.CanAddr() {
		switch p := v.Addr().Interface().(type) {
		case Setter:
			return p.SetValue(raw)
		case encoding.TextUnmarshaler:
			return p.UnmarshalText([]byte(raw))
		}
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(raw, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(n)
	case reflect.Slice:
		return parseSlice(v, raw, sep, layout)
	case reflect.Map:
		return parseMap(v, raw, sep, layout)
	default:
		return fmt.Errorf("unsupported type %s", v.Type())
	}
	return nil
}

func parseSlice(v reflect.Value, raw, sep, layout string) error {
	if v.Type().Elem().Kind() == reflect.Uint8 {
		v.SetBytes([]byte(raw))
		return nil
	}
	if raw == "" {
		v.Set(reflect.MakeSlice(v.Type(), 0, 0))
		return nil
	}

	parts := strings.Split(raw, sep)
	s := reflect.MakeSlice(v.Type(), len(parts), len(parts))
	for i, p := range parts {
		if err := parseValue(s.Index(i), strings.TrimSpace(p), sep, layout); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	v.Set(s)
	return nil
}

func parseMap(v reflect.Value, raw, sep, layout string) error {
	m := reflect.MakeMap(v.Type())
	if raw != "" {
		for _, pair := range strings.Split(raw, sep) {
			key, val, ok := strings.Cut(pair, ":")
			if !ok {
				return fmt.Errorf("map entry %q is not key:value", pair)
			}
			k := reflect.New(v.Type().Key()).Elem()
			if err := parseValue(k, strings.TrimSpace(key), sep, layout); err != nil {
				return fmt.Errorf("map key %q: %w", key, err)
			}
			e := reflect.New(v.Type().Elem()).Elem()
			if err := parseValue(e, strings.TrimSpace(val), sep, layout); err != nil {
				return fmt.Errorf("map value of %q: %w", key, err)
			}
			m.SetMapIndex(k, e)
		}
	}
	v.Set(m)
	return nil
}
