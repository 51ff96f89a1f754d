// Package schema loads operation sets from declaration files.
//
// A declaration lists the bundle id and its operations in order:
//
//	bundle: messages
//	operations:
//	  - name: greeting
//	    params: [object]
//	  - name: files
//	    params: [int]
//
// The same structure is accepted as TOML with an [[operations]] array.
package schema

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/c3p0-box/translations/bundle"
	"github.com/c3p0-box/translations/erm"
)

// Format names a declaration file syntax.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// Declaration is the decoded form of a declaration file.
type Declaration struct {
	Bundle     string      `yaml:"bundle" toml:"bundle"`
	Operations []Operation `yaml:"operations" toml:"operations"`
}

// Operation declares one operation. Params holds kind names such as "int".
type Operation struct {
	Name   string   `yaml:"name" toml:"name"`
	Params []string `yaml:"params" toml:"params"`
}

// FormatOf returns the format of a file name by its extension.
func FormatOf(name string) (Format, bool) {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return YAML, true
	case ".toml":
		return TOML, true
	}
	return "", false
}

// Decode decodes a declaration without validating it.
func Decode(data []byte, format Format) (Declaration, error) {
	var d Declaration
	var err error
	switch format {
	case YAML:
		err = yaml.Unmarshal(data, &d)
	case TOML:
		err = toml.Unmarshal(data, &d)
	default:
		return d, erm.Invalid(fmt.Sprintf("unsupported declaration format %q", format), nil)
	}
	if err != nil {
		return d, erm.Invalid("cannot decode operation declaration", err)
	}
	return d, nil
}

// OperationSet validates d and builds its operation set.
func (d Declaration) OperationSet() (*bundle.OperationSet, error) {
	specs := make([]bundle.OperationSpec, 0, len(d.Operations))
	for _, op := range d.Operations {
		params := make([]bundle.ParamKind, 0, len(op.Params))
		for _, p := range op.Params {
			k, err := bundle.ParseParamKind(p)
			if err != nil {
				return nil, erm.Invalid(fmt.Sprintf("bundle %s: operation %s", d.Bundle, op.Name), err)
			}
			params = append(params, k)
		}
		specs = append(specs, bundle.Op(op.Name, params...))
	}
	return bundle.NewOperationSet(d.Bundle, specs...)
}

// Parse decodes and validates a declaration.
func Parse(data []byte, format Format) (*bundle.OperationSet, error) {
	d, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	return d.OperationSet()
}

// Load reads the declaration file at name from fsys.
func Load(fsys fs.FS, name string) (*bundle.OperationSet, error) {
	format, ok := FormatOf(name)
	if !ok {
		return nil, erm.Invalid(fmt.Sprintf("%s: unknown declaration file extension", name), nil)
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, erm.Invalid(fmt.Sprintf("reading %s", name), err)
	}
	set, err := Parse(data, format)
	if err != nil {
		return nil, erm.Invalid(name, err)
	}
	return set, nil
}

// LoadDir loads every declaration file below dir, sorted by bundle id. Two
// files declaring the same bundle are rejected.
func LoadDir(fsys fs.FS, dir string) ([]*bundle.OperationSet, error) {
	var sets []*bundle.OperationSet
	seen := make(map[string]string)

	err := fs.WalkDir(fsys, dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := FormatOf(name); !ok {
			return nil
		}

		set, err := Load(fsys, name)
		if err != nil {
			return err
		}
		if prev, dup := seen[set.BundleID()]; dup {
			return erm.Invalid(fmt.Sprintf("bundle %s declared by both %s and %s", set.BundleID(), prev, name), nil)
		}
		seen[set.BundleID()] = name
		sets = append(sets, set)
		return nil
	})
	if err != nil {
		if erm.KindOf(err) == erm.KindInvalid {
			return nil, err
		}
		return nil, erm.Invalid(fmt.Sprintf("walking %s", dir), err)
	}

	sort.Slice(sets, func(i, j int) bool {
		return sets[i].BundleID() < sets[j].BundleID()
	})
	return sets, nil
}
