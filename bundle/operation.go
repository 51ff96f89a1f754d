package bundle

import (
	"fmt"
	"strings"

	"github.com/c3p0-box/translations/erm"
)

// OperationSpec declares one message operation: its name, which is also its
// template key, and the kinds of its parameters.
type OperationSpec struct {
	Name   string
	Params []ParamKind
}

// Op is a shorthand for OperationSpec{Name: name, Params: params}.
func Op(name string, params ...ParamKind) OperationSpec {
	return OperationSpec{Name: name, Params: params}
}

// Arity returns the number of parameters.
func (s OperationSpec) Arity() int {
	return len(s.Params)
}

// Signature returns the name followed by the parameter kinds, e.g. "greet(object,int)".
func (s OperationSpec) Signature() string {
	kinds := make([]string, len(s.Params))
	for i, k := range s.Params {
		kinds[i] = k.String()
	}
	return s.Name + "(" + strings.Join(kinds, ",") + ")"
}

func (s OperationSpec) String() string {
	return s.Signature()
}

// OperationSet is the ordered, immutable list of operations of one bundle.
// Operations may share a name when their signatures differ. Its pointer is
// its identity in a Cache.
type OperationSet struct {
	bundleID string
	specs    []OperationSpec
	bySig    map[string]int
	byName   map[string][]int
}

// NewOperationSet validates specs and returns the set of bundleID.
func NewOperationSet(bundleID string, specs ...OperationSpec) (*OperationSet, error) {
	if strings.TrimSpace(bundleID) == "" {
		return nil, erm.Invalid("bundle id must not be empty", nil)
	}

	s := &OperationSet{
		bundleID: bundleID,
		specs:    make([]OperationSpec, 0, len(specs)),
		bySig:    make(map[string]int, len(specs)),
		byName:   make(map[string][]int, len(specs)),
	}
	for _, spec := range specs {
		if strings.TrimSpace(spec.Name) == "" {
			return nil, erm.Invalid(fmt.Sprintf("bundle %s: operation name must not be empty", bundleID), nil)
		}
		for _, k := range spec.Params {
			if k < Boolean || k > Object {
				return nil, erm.Invalid(fmt.Sprintf("bundle %s: operation %s has an invalid parameter kind %d", bundleID, spec.Name, int(k)), nil)
			}
		}
		sig := spec.Signature()
		if _, dup := s.bySig[sig]; dup {
			return nil, erm.Invalid(fmt.Sprintf("bundle %s: duplicate operation %s", bundleID, sig), nil)
		}

		spec.Params = append([]ParamKind(nil), spec.Params...)
		s.bySig[sig] = len(s.specs)
		s.byName[spec.Name] = append(s.byName[spec.Name], len(s.specs))
		s.specs = append(s.specs, spec)
	}
	return s, nil
}

// MustOperationSet is like NewOperationSet but panics on error.
func MustOperationSet(bundleID string, specs ...OperationSpec) *OperationSet {
	s, err := NewOperationSet(bundleID, specs...)
	if err != nil {
		panic(err)
	}
	return s
}

// BundleID returns the identifier templates are fetched under.
func (s *OperationSet) BundleID() string {
	return s.bundleID
}

// Len returns the number of operations.
func (s *OperationSet) Len() int {
	return len(s.specs)
}

// Specs returns a copy of the operations in declaration order.
func (s *OperationSet) Specs() []OperationSpec {
	out := make([]OperationSpec, len(s.specs))
	copy(out, s.specs)
	return out
}

// Names returns the distinct operation names in declaration order.
func (s *OperationSet) Names() []string {
	var names []string
	seen := make(map[string]bool, len(s.byName))
	for _, spec := range s.specs {
		if !seen[spec.Name] {
			seen[spec.Name] = true
			names = append(names, spec.Name)
		}
	}
	return names
}

// Lookup returns the operations named name.
func (s *OperationSet) Lookup(name string) []OperationSpec {
	idx := s.byName[name]
	out := make([]OperationSpec, len(idx))
	for i, j := range idx {
		out[i] = s.specs[j]
	}
	return out
}
