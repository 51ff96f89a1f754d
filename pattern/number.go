package pattern

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

type numberStyle int

const (
	numberDefault numberStyle = iota
	numberInteger
	numberPercent
	numberCurrency
	numberDecimal
)

type numberFormat struct {
	style   numberStyle
	decimal decimalPattern
}

// decimalPattern is the subset of decimal patterns such as "#,##0.00",
// "0.###%" or "0.###E0" that maps onto x/text number options.
type decimalPattern struct {
	prefix      string
	suffix      string
	minInteger  int
	minFraction int
	maxFraction int
	grouping    bool
	multiplier  float64
	exponent    bool
	minExponent int
}

func parseNumberStyle(style string) (numberFormat, error) {
	switch strings.ToLower(strings.TrimSpace(style)) {
	case "":
		return numberFormat{style: numberDefault}, nil
	case "integer":
		return numberFormat{style: numberInteger}, nil
	case "percent":
		return numberFormat{style: numberPercent}, nil
	case "currency":
		return numberFormat{style: numberCurrency}, nil
	}
	d, err := parseDecimalPattern(style)
	if err != nil {
		return numberFormat{}, err
	}
	return numberFormat{style: numberDecimal, decimal: d}, nil
}

func parseDecimalPattern(s string) (decimalPattern, error) {
	d := decimalPattern{multiplier: 1}

	// first sub-pattern only; the negative one is ignored
	if i := strings.IndexRune(s, ';'); i >= 0 {
		s = s[:i]
	}

	var (
		prefix, suffix strings.Builder
		inQuote        bool
		phase          int // 0 prefix, 1 number, 2 suffix
		fraction       bool
		sawDigit       bool
	)

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		out := &prefix
		if phase == 2 {
			out = &suffix
		}

		if ch == '\'' {
			if i+1 < len(runes) && runes[i+1] == '\'' {
				out.WriteRune(ch)
				i++
			} else {
				inQuote = !inQuote
			}
			if phase == 1 {
				phase = 2
			}
			continue
		}
		if inQuote {
			out.WriteRune(ch)
			continue
		}

		if ch == 'E' && phase == 1 {
			for i+1 < len(runes) && runes[i+1] == '0' {
				d.minExponent++
				i++
			}
			if d.minExponent == 0 {
				return d, fmt.Errorf("exponent without digits in number pattern %q", s)
			}
			d.exponent = true
			phase = 2
			continue
		}

		switch ch {
		case '#', '0', ',', '.':
			if phase == 2 {
				return d, fmt.Errorf("malformed number pattern %q", s)
			}
			phase = 1
			switch ch {
			case '#':
				if fraction {
					d.maxFraction++
				} else if sawDigit && d.minInteger > 0 {
					return d, fmt.Errorf("unexpected '#' in number pattern %q", s)
				}
			case '0':
				sawDigit = true
				if fraction {
					d.minFraction++
					d.maxFraction++
				} else {
					d.minInteger++
				}
			case ',':
				if fraction {
					return d, fmt.Errorf("grouping separator after decimal point in %q", s)
				}
				d.grouping = true
			case '.':
				if fraction {
					return d, fmt.Errorf("multiple decimal separators in %q", s)
				}
				fraction = true
			}
		case '%':
			d.multiplier = 100
			out.WriteRune(ch)
			if phase == 1 {
				phase = 2
			}
		case '‰':
			d.multiplier = 1000
			out.WriteRune(ch)
			if phase == 1 {
				phase = 2
			}
		default:
			if phase == 1 {
				phase = 2
				out = &suffix
			}
			out.WriteRune(ch)
		}
	}

	if inQuote {
		return d, fmt.Errorf("unterminated quote in number pattern %q", s)
	}
	if phase == 0 {
		return d, fmt.Errorf("number pattern %q has no digits", s)
	}
	d.prefix = prefix.String()
	d.suffix = suffix.String()
	return d, nil
}

var printers sync.Map

func printerFor(tag language.Tag) *message.Printer {
	if p, ok := printers.Load(tag); ok {
		return p.(*message.Printer)
	}
	p, _ := printers.LoadOrStore(tag, message.NewPrinter(tag))
	return p.(*message.Printer)
}

func formatNumber(tag language.Tag, nf numberFormat, v interface{}) (string, error) {
	if !isNumber(v) {
		return "", fmt.Errorf("cannot format %T as a number", v)
	}
	p := printerFor(tag)

	switch nf.style {
	case numberInteger:
		return p.Sprint(number.Decimal(v, number.MaxFractionDigits(0))), nil
	case numberPercent:
		return p.Sprint(number.Percent(v)), nil
	case numberCurrency:
		return formatCurrency(p, tag, v), nil
	case numberDecimal:
		return formatDecimal(p, nf.decimal, v), nil
	default:
		return p.Sprint(number.Decimal(v, number.MaxFractionDigits(3))), nil
	}
}

func formatDecimal(p *message.Printer, d decimalPattern, v interface{}) string {
	if d.exponent {
		f, _ := toFloat(v)
		return d.prefix + formatScientific(p, d, f*d.multiplier) + d.suffix
	}
	if d.multiplier != 1 {
		f, _ := toFloat(v)
		v = f * d.multiplier
	}
	opts := []number.Option{
		number.MinIntegerDigits(d.minInteger),
		number.MinFractionDigits(d.minFraction),
		number.MaxFractionDigits(d.maxFraction),
	}
	if !d.grouping {
		opts = append(opts, number.NoSeparator())
	}
	return d.prefix + p.Sprint(number.Decimal(v, opts...)) + d.suffix
}

// formatScientific renders f as a mantissa with minInteger integer digits
// followed by "E" and the exponent, e.g. "1.234E3" for "0.###E0".
func formatScientific(p *message.Printer, d decimalPattern, f float64) string {
	intDigits := max(d.minInteger, 1)
	exp := 0
	if f != 0 && !math.IsInf(f, 0) && !math.IsNaN(f) {
		exp = int(math.Floor(math.Log10(math.Abs(f)))) - (intDigits - 1)
	}
	m := f / math.Pow10(exp)
	scale := math.Pow10(d.maxFraction)
	if m = math.Round(m*scale) / scale; math.Abs(m) >= math.Pow10(intDigits) {
		m /= 10
		exp++
	}

	mantissa := p.Sprint(number.Decimal(m,
		number.MinIntegerDigits(intDigits),
		number.MinFractionDigits(d.minFraction),
		number.MaxFractionDigits(d.maxFraction),
		number.NoSeparator(),
	))
	sign := ""
	if exp < 0 {
		sign, exp = "-", -exp
	}
	return mantissa + "E" + sign + pad(exp, d.minExponent)
}

// Languages writing the currency symbol after the amount. x/text exposes no
// symbol placement data, so any language missing here gets the symbol first.
var symbolAfter = map[string]bool{
	"bg": true, "ca": true, "cs": true, "da": true, "de": true, "el": true,
	"es": true, "et": true, "fi": true, "fr": true, "hr": true, "hu": true,
	"is": true, "it": true, "lt": true, "lv": true, "nb": true, "nn": true,
	"no": true, "pl": true, "pt": true, "ro": true, "ru": true, "sk": true,
	"sl": true, "sr": true, "sv": true, "uk": true,
}

func formatCurrency(p *message.Printer, tag language.Tag, v interface{}) string {
	unit, _ := currency.FromTag(tag)
	scale, _ := currency.Standard.Rounding(unit)
	amount := p.Sprint(number.Decimal(v, number.MinFractionDigits(scale), number.MaxFractionDigits(scale)))
	symbol := p.Sprint(currency.Symbol(unit))

	base, _ := tag.Base()
	if symbolAfter[base.String()] {
		return amount + "\u00a0" + symbol
	}
	if f, _ := toFloat(v); f < 0 {
		return "-" + symbol + strings.TrimPrefix(amount, "-")
	}
	return symbol + amount
}

func isNumber(v interface{}) bool {
	_, ok := toFloat(v)
	return ok
}

// toFloat converts any Go numeric value. Char is not a number.
func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return math.NaN(), false
}
