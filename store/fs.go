package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"

	"github.com/magiconair/properties"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Decoder turns the bytes of a template file into a flat Templates map.
type Decoder func(data []byte) (Templates, error)

// Format binds a file extension to its Decoder.
type Format struct {
	Ext    string
	Decode Decoder
}

// DefaultFormats lists the formats FSStore tries, in order.
var DefaultFormats = []Format{
	{Ext: ".properties", Decode: DecodeProperties},
	{Ext: ".toml", Decode: DecodeTOML},
	{Ext: ".yaml", Decode: DecodeYAML},
	{Ext: ".yml", Decode: DecodeYAML},
	{Ext: ".json", Decode: DecodeJSON},
}

// FSStore reads "<dir>/<bundleID><suffix><ext>" files from a file system.
// The first existing file in format order wins.
type FSStore struct {
	fsys    fs.FS
	dir     string
	formats []Format
}

// NewFSStore creates a store over dir of fsys using DefaultFormats unless
// formats are given.
func NewFSStore(fsys fs.FS, dir string, formats ...Format) *FSStore {
	if dir == "" {
		dir = "."
	}
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	return &FSStore{fsys: fsys, dir: dir, formats: formats}
}

func (s *FSStore) Fetch(ctx context.Context, bundleID, suffix string) (Templates, bool, error) {
	for _, f := range s.formats {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		name := path.Join(s.dir, Name(bundleID, suffix)+f.Ext)
		data, err := fs.ReadFile(s.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("read %s: %w", name, err)
		}
		t, err := f.Decode(data)
		if err != nil {
			return nil, false, fmt.Errorf("decode %s: %w", name, err)
		}
		return t, true, nil
	}
	return nil, false, nil
}

// DecodeProperties decodes a UTF-8 .properties file. ${} expansion is off so
// templates are kept verbatim.
func DecodeProperties(data []byte) (Templates, error) {
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	return Templates(p.Map()), nil
}

// DecodeTOML decodes a TOML file; nested tables become dotted keys.
func DecodeTOML(data []byte) (Templates, error) {
	var m map[string]interface{}
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return flatten(m)
}

// DecodeYAML decodes a YAML mapping; nested mappings become dotted keys.
func DecodeYAML(data []byte) (Templates, error) {
	var m map[string]interface{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return flatten(m)
}

// DecodeJSON decodes a JSON object; nested objects become dotted keys.
func DecodeJSON(data []byte) (Templates, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return flatten(m)
}

func flatten(m map[string]interface{}) (Templates, error) {
	t := make(Templates, len(m))
	if err := flattenInto(t, "", m); err != nil {
		return nil, err
	}
	return t, nil
}

func flattenInto(t Templates, prefix string, m map[string]interface{}) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := m[k].(type) {
		case string:
			t[key] = v
		case map[string]interface{}:
			if err := flattenInto(t, key, v); err != nil {
				return err
			}
		case bool:
			t[key] = strconv.FormatBool(v)
		case int:
			t[key] = strconv.Itoa(v)
		case int64:
			t[key] = strconv.FormatInt(v, 10)
		case float64:
			t[key] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return fmt.Errorf("key %q: unsupported value of type %T", key, v)
		}
	}
	return nil
}
