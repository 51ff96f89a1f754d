package pattern

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Char is a single character argument. It renders as the character itself,
// while a plain rune renders as a number.
type Char rune

func (c Char) String() string {
	return string(rune(c))
}

// Format renders the pattern for tag with positional args.
//
// A field whose index is beyond args is written back as "{N}" and a nil
// argument renders as "null".
func (p *Pattern) Format(tag language.Tag, args ...interface{}) (string, error) {
	var b strings.Builder
	if err := p.format(&b, tag, args); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (p *Pattern) format(b *strings.Builder, tag language.Tag, args []interface{}) error {
	for _, s := range p.segments {
		f := s.field
		if f == nil {
			b.WriteString(s.text)
			continue
		}
		if f.Index >= len(args) {
			b.WriteByte('{')
			b.WriteString(strconv.Itoa(f.Index))
			b.WriteByte('}')
			continue
		}
		if err := f.format(b, tag, args[f.Index], args); err != nil {
			return fmt.Errorf("argument %d: %w", f.Index, err)
		}
	}
	return nil
}

func (f *Field) format(b *strings.Builder, tag language.Tag, arg interface{}, args []interface{}) error {
	if arg == nil {
		b.WriteString("null")
		return nil
	}

	var (
		s   string
		err error
	)
	switch f.Type {
	case TypeNumber:
		s, err = formatNumber(tag, f.number, arg)
	case TypeDate, TypeTime:
		s, err = formatDate(tag, f.date, arg)
	case TypeChoice:
		x, ok := toFloat(arg)
		if !ok {
			return fmt.Errorf("cannot format %T as a number", arg)
		}
		return f.choice.format(b, tag, x, args)
	default:
		s, err = formatValue(tag, arg)
	}
	if err != nil {
		return err
	}
	b.WriteString(s)
	return nil
}

// formatValue renders an argument of a field without type.
func formatValue(tag language.Tag, v interface{}) (string, error) {
	switch x := v.(type) {
	case nil:
		return "null", nil
	case string:
		return x, nil
	case Char:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		return formatDateTime(tag, x), nil
	case *time.Time:
		if x == nil {
			return "null", nil
		}
		return formatDateTime(tag, *x), nil
	}
	if isNumber(v) {
		return formatNumber(tag, numberFormat{style: numberDefault}, v)
	}
	switch x := v.(type) {
	case fmt.Stringer:
		return x.String(), nil
	case error:
		return x.Error(), nil
	}
	return fmt.Sprint(v), nil
}

// Render parses s and formats it for tag with args.
func Render(s string, tag language.Tag, args ...interface{}) (string, error) {
	p, err := Parse(s)
	if err != nil {
		return "", err
	}
	return p.Format(tag, args...)
}
