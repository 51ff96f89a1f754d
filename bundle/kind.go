package bundle

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/c3p0-box/translations/erm"
	"github.com/c3p0-box/translations/pattern"
)

// ParamKind is the declared kind of an operation parameter.
type ParamKind int

const (
	Boolean ParamKind = iota
	Byte
	Char
	Short
	Int
	Long
	Float
	Double
	Object
)

var paramKindNames = [...]string{
	Boolean: "boolean",
	Byte:    "byte",
	Char:    "char",
	Short:   "short",
	Int:     "int",
	Long:    "long",
	Float:   "float",
	Double:  "double",
	Object:  "object",
}

var paramKindAliases = map[string]ParamKind{
	"bool":      Boolean,
	"character": Char,
	"integer":   Int,
	"string":    Object,
	"any":       Object,
}

func (k ParamKind) String() string {
	if k < 0 || int(k) >= len(paramKindNames) {
		return fmt.Sprintf("ParamKind(%d)", int(k))
	}
	return paramKindNames[k]
}

// ParseParamKind parses a kind name such as "int" or "object", case-insensitively.
func ParseParamKind(s string) (ParamKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range paramKindNames {
		if n == name {
			return ParamKind(k), nil
		}
	}
	if k, ok := paramKindAliases[name]; ok {
		return k, nil
	}
	return Object, fmt.Errorf("unknown parameter kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k ParamKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ParamKind) UnmarshalText(b []byte) error {
	v, err := ParseParamKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// accepts reports whether v can be passed for a parameter of kind k.
func (k ParamKind) accepts(v interface{}) bool {
	_, err := k.coerce(v)
	return err == nil
}

// coerce converts v to the printable form of kind k. Primitive kinds reject
// nil and values that do not fit; Object passes every value through.
func (k ParamKind) coerce(v interface{}) (interface{}, error) {
	if k == Object {
		return v, nil
	}
	if v == nil {
		return nil, fmt.Errorf("nil is not a valid %s", k)
	}

	switch k {
	case Boolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case Char:
		switch x := v.(type) {
		case pattern.Char:
			return x, nil
		case rune:
			return pattern.Char(x), nil
		case string:
			if utf8.RuneCountInString(x) == 1 {
				r, _ := utf8.DecodeRuneInString(x)
				return pattern.Char(r), nil
			}
		}
	case Byte:
		if n, ok := toInteger(v); ok && n >= math.MinInt8 && n <= math.MaxInt8 {
			return int8(n), nil
		}
	case Short:
		if n, ok := toInteger(v); ok && n >= math.MinInt16 && n <= math.MaxInt16 {
			return int16(n), nil
		}
	case Int:
		if n, ok := toInteger(v); ok && n >= math.MinInt32 && n <= math.MaxInt32 {
			return int32(n), nil
		}
	case Long:
		if n, ok := toInteger(v); ok {
			return n, nil
		}
	case Float:
		if f, ok := toFloat(v); ok {
			return float32(f), nil
		}
	case Double:
		if f, ok := toFloat(v); ok {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%T is not a valid %s", v, k)
}

func toInteger(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	if n, ok := toInteger(v); ok {
		return float64(n), true
	}
	return 0, false
}

// ParseArg converts the textual form of an argument, as typed on a command
// line or in a query string, to a value of kind k. Object arguments that read
// as numbers become int64 or float64 so choice and number fields apply.
func ParseArg(k ParamKind, s string) (interface{}, error) {
	var v interface{}
	switch k {
	case Boolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid %s", s, k)
		}
		v = b
	case Char:
		v = s
	case Byte, Short, Int, Long:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid %s", s, k)
		}
		v = n
	case Float, Double:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid %s", s, k)
		}
		v = f
	default:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
		return s, nil
	}
	return k.coerce(v)
}

// ParseArgs converts args for the first operation named name in set whose
// arity matches and whose kinds accept every argument.
func ParseArgs(set *OperationSet, name string, args []string) (OperationSpec, []interface{}, error) {
	var firstErr error
	for _, spec := range set.Lookup(name) {
		if spec.Arity() != len(args) {
			continue
		}
		values, err := parseArgs(spec, args)
		if err == nil {
			return spec, values, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("bundle %s has no operation %s taking %d arguments", set.BundleID(), name, len(args))
	}
	return OperationSpec{}, nil, erm.Invalid(fmt.Sprintf("cannot use arguments for %s", name), firstErr)
}

func parseArgs(spec OperationSpec, args []string) ([]interface{}, error) {
	values := make([]interface{}, len(args))
	for i, a := range args {
		v, err := ParseArg(spec.Params[i], a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}
