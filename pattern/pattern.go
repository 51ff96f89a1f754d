// Package pattern parses and renders positional message templates.
//
// A template is literal text with fields of the form {N}, {N,type} or
// {N,type,style}. A single quote starts and ends literal text and two single
// quotes produce one. Supported types are number, date, time and choice; a
// choice style is a list of branches such as
//
//	0#no files|1#one file|1<{0,number,integer} files
//
// whose selected text is rendered again, with the same arguments, when it
// contains a field. A choice nested in a branch must be quoted so that its
// own separators are not read as the outer ones:
//
//	0#none|1#'{1,choice,0#one|1#one of {2}}'
//
// Number styles are integer, percent, currency or a decimal pattern such as
// "#,##0.00" or "0.###E0". Date and time styles are short, medium, long, full
// or a layout of pattern letters such as "d MMMM yyyy"; month and day names
// follow the calendar of the closest supported locale.
package pattern

import (
	"fmt"
	"strconv"
	"strings"
)

// maxArgumentIndex bounds field indexes so a typo cannot request a huge argument list.
const maxArgumentIndex = 10000

// FieldType is the type part of a field.
type FieldType int

const (
	TypeNone FieldType = iota
	TypeNumber
	TypeDate
	TypeTime
	TypeChoice
)

var fieldTypeNames = map[string]FieldType{
	"":       TypeNone,
	"number": TypeNumber,
	"date":   TypeDate,
	"time":   TypeTime,
	"choice": TypeChoice,
}

func (t FieldType) String() string {
	for name, ft := range fieldTypeNames {
		if ft == t {
			return name
		}
	}
	return "unknown"
}

// SyntaxError describes a template that cannot be parsed.
type SyntaxError struct {
	Pattern string
	Msg     string
}

func (e *SyntaxError) Error() string {
	return e.Msg + " in pattern \"" + e.Pattern + "\""
}

func syntaxErrorf(pattern, format string, args ...interface{}) error {
	return &SyntaxError{Pattern: pattern, Msg: fmt.Sprintf(format, args...)}
}

// Field is one positional placeholder of a Pattern.
type Field struct {
	Index int
	Type  FieldType
	Style string

	number numberFormat
	date   dateFormat
	choice *Choice
}

// Choice returns the parsed choice of a TypeChoice field, nil otherwise.
func (f *Field) Choice() *Choice {
	return f.choice
}

type segment struct {
	text  string
	field *Field
}

// Pattern is a parsed template. It is immutable and safe for concurrent use.
type Pattern struct {
	source   string
	segments []segment
	maxIndex int
}

// Parse parses a template.
func Parse(s string) (*Pattern, error) {
	p := &Pattern{source: s, maxIndex: -1}

	var (
		text    strings.Builder
		seg     [4]strings.Builder
		part    int
		inQuote bool
		braces  int
	)

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if part == 0 {
			switch {
			case ch == '\'':
				if i+1 < len(runes) && runes[i+1] == '\'' {
					text.WriteRune(ch)
					i++
				} else {
					inQuote = !inQuote
				}
			case ch == '{' && !inQuote:
				part = 1
			default:
				text.WriteRune(ch)
			}
			continue
		}

		if inQuote {
			seg[part].WriteRune(ch)
			if ch == '\'' {
				inQuote = false
			}
			continue
		}

		switch ch {
		case ',':
			if part < 3 {
				part++
			} else {
				seg[part].WriteRune(ch)
			}
		case '{':
			braces++
			seg[part].WriteRune(ch)
		case '}':
			if braces > 0 {
				braces--
				seg[part].WriteRune(ch)
				continue
			}
			f, err := newField(s, seg[1].String(), seg[2].String(), seg[3].String())
			if err != nil {
				return nil, err
			}
			if text.Len() > 0 {
				p.segments = append(p.segments, segment{text: text.String()})
				text.Reset()
			}
			p.segments = append(p.segments, segment{field: f})
			p.maxIndex = max(p.maxIndex, f.maxIndex())
			for j := range seg {
				seg[j].Reset()
			}
			part = 0
		case ' ':
			// leading spaces of the type are skipped
			if part != 2 || seg[2].Len() > 0 {
				seg[part].WriteRune(ch)
			}
		case '\'':
			inQuote = true
			seg[part].WriteRune(ch)
		default:
			seg[part].WriteRune(ch)
		}
	}

	if part != 0 {
		return nil, syntaxErrorf(s, "unmatched braces")
	}
	if text.Len() > 0 {
		p.segments = append(p.segments, segment{text: text.String()})
	}
	return p, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) *Pattern {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func newField(pattern, index, typ, style string) (*Field, error) {
	n, err := strconv.Atoi(index)
	if err != nil {
		return nil, syntaxErrorf(pattern, "can't parse argument number: %s", index)
	}
	if n < 0 || n > maxArgumentIndex {
		return nil, syntaxErrorf(pattern, "argument number out of range: %d", n)
	}

	ft, ok := fieldTypeNames[strings.ToLower(strings.TrimSpace(typ))]
	if !ok {
		return nil, syntaxErrorf(pattern, "unknown format type: %s", typ)
	}

	f := &Field{Index: n, Type: ft, Style: style}
	switch ft {
	case TypeNumber:
		f.number, err = parseNumberStyle(style)
	case TypeDate:
		f.date, err = parseDateStyle(style, true)
	case TypeTime:
		f.date, err = parseDateStyle(style, false)
	case TypeChoice:
		f.choice, err = ParseChoice(style)
	}
	if err != nil {
		if se, ok := err.(*SyntaxError); ok {
			return nil, se
		}
		return nil, syntaxErrorf(pattern, "%v", err)
	}
	return f, nil
}

func (f *Field) maxIndex() int {
	n := f.Index
	if f.choice != nil {
		n = max(n, f.choice.MaxArgIndex())
	}
	return n
}

// String returns the template the pattern was parsed from.
func (p *Pattern) String() string {
	return p.source
}

// Fields returns the top-level fields in template order.
func (p *Pattern) Fields() []*Field {
	var fields []*Field
	for _, s := range p.segments {
		if s.field != nil {
			fields = append(fields, s.field)
		}
	}
	return fields
}

// MaxArgIndex returns the highest argument index referenced anywhere in the
// pattern, including choice branches, or -1 when there is none.
func (p *Pattern) MaxArgIndex() int {
	return p.maxIndex
}

// Arity returns the number of arguments the pattern needs.
func (p *Pattern) Arity() int {
	return p.maxIndex + 1
}

// MaxArgIndex parses s and returns its highest argument index, looking into
// choice branches. It returns -1 when s has no field.
func MaxArgIndex(s string) (int, error) {
	p, err := Parse(s)
	if err != nil {
		return -1, err
	}
	return p.MaxArgIndex(), nil
}
