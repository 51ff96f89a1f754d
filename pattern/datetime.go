package pattern

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goodsign/monday"
	"golang.org/x/text/language"
)

type dateLength int

const (
	lengthShort dateLength = iota
	lengthMedium
	lengthLong
	lengthFull
	lengthCustom
)

var dateLengths = map[string]dateLength{
	"":       lengthMedium,
	"short":  lengthShort,
	"medium": lengthMedium,
	"long":   lengthLong,
	"full":   lengthFull,
}

type dateFormat struct {
	date   bool
	length dateLength
	layout string
}

func parseDateStyle(style string, date bool) (dateFormat, error) {
	if l, ok := dateLengths[strings.ToLower(strings.TrimSpace(style))]; ok {
		return dateFormat{date: date, length: l}, nil
	}
	if err := checkLayout(style); err != nil {
		return dateFormat{}, err
	}
	return dateFormat{date: date, length: lengthCustom, layout: style}, nil
}

var (
	dateLayouts = [4]map[monday.Locale]string{
		monday.ShortFormatsByLocale,
		monday.MediumFormatsByLocale,
		monday.LongFormatsByLocale,
		monday.FullFormatsByLocale,
	}

	calendarLocales = sync.OnceValues(func() ([]monday.Locale, language.Matcher) {
		all := monday.ListLocales()
		slices.Sort(all)

		locales := []monday.Locale{monday.LocaleEnUS}
		tags := []language.Tag{language.AmericanEnglish}
		for _, l := range all {
			if l == monday.LocaleEnUS {
				continue
			}
			tag, err := language.Parse(strings.ReplaceAll(string(l), "_", "-"))
			if err != nil {
				continue
			}
			locales = append(locales, l)
			tags = append(tags, tag)
		}
		return locales, language.NewMatcher(tags)
	})
)

// calendarFor returns the calendar locale closest to tag, en_US when none matches.
func calendarFor(tag language.Tag) monday.Locale {
	locales, m := calendarLocales()
	_, i, conf := m.Match(tag)
	if conf == language.No {
		return monday.LocaleEnUS
	}
	return locales[i]
}

func layoutOf(formats map[monday.Locale]string, loc monday.Locale) string {
	if l, ok := formats[loc]; ok {
		return l
	}
	return formats[monday.LocaleEnUS]
}

// timeLayout returns the time part of the locale's date-time layout with
// seconds from medium on and the zone from long on.
func timeLayout(loc monday.Locale, length dateLength) string {
	layout := strings.TrimSpace(strings.TrimPrefix(
		layoutOf(monday.DateTimeFormatsByLocale, loc),
		layoutOf(monday.ShortFormatsByLocale, loc),
	))
	if !strings.Contains(layout, "04") {
		layout = "15:04"
	}
	if length >= lengthMedium {
		layout = strings.Replace(layout, "04", "04:05", 1)
	}
	if length >= lengthLong {
		layout += " MST"
	}
	return layout
}

func formatDate(tag language.Tag, df dateFormat, v interface{}) (string, error) {
	t, ok := toTime(v)
	if !ok {
		return "", fmt.Errorf("cannot format %T as a date", v)
	}
	loc := calendarFor(tag)
	switch {
	case df.length == lengthCustom:
		return formatLayout(df.layout, t, loc), nil
	case df.date:
		return monday.Format(t, layoutOf(dateLayouts[df.length], loc), loc), nil
	default:
		return monday.Format(t, timeLayout(loc, df.length), loc), nil
	}
}

// formatDateTime renders an untyped time argument as short date and short time.
func formatDateTime(tag language.Tag, t time.Time) string {
	loc := calendarFor(tag)
	return monday.Format(t, layoutOf(monday.ShortFormatsByLocale, loc), loc) + " " +
		monday.Format(t, timeLayout(loc, lengthShort), loc)
}

func toTime(v interface{}) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case *time.Time:
		if x != nil {
			return *x, true
		}
	}
	return time.Time{}, false
}

const layoutLetters = "GyMdEaHkKhmsSzZ"

func checkLayout(layout string) error {
	inQuote := false
	for _, r := range layout {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case inQuote:
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			if !strings.ContainsRune(layoutLetters, r) {
				return fmt.Errorf("illegal pattern character '%c' in date pattern %q", r, layout)
			}
		}
	}
	if inQuote {
		return fmt.Errorf("unterminated quote in date pattern %q", layout)
	}
	return nil
}

// formatLayout renders t with a layout made of pattern letters such as
// "d MMMM yyyy". Names come from the calendar of loc.
func formatLayout(layout string, t time.Time, loc monday.Locale) string {
	var b strings.Builder
	runes := []rune(layout)
	for i := 0; i < len(runes); {
		ch := runes[i]
		if ch == '\'' {
			if i+1 < len(runes) && runes[i+1] == '\'' {
				b.WriteRune('\'')
				i += 2
				continue
			}
			j := i + 1
			for j < len(runes) && runes[j] != '\'' {
				b.WriteRune(runes[j])
				j++
			}
			i = j + 1
			continue
		}
		if !strings.ContainsRune(layoutLetters, ch) {
			b.WriteRune(ch)
			i++
			continue
		}
		n := 1
		for i+n < len(runes) && runes[i+n] == ch {
			n++
		}
		b.WriteString(field(ch, n, t, loc))
		i += n
	}
	return b.String()
}

func field(ch rune, n int, t time.Time, loc monday.Locale) string {
	switch ch {
	case 'G':
		if t.Year() <= 0 {
			return "BC"
		}
		return "AD"
	case 'y':
		if n == 2 {
			return pad(t.Year()%100, 2)
		}
		return pad(t.Year(), n)
	case 'M':
		switch {
		case n >= 4:
			return monday.Format(t, "January", loc)
		case n == 3:
			return monday.Format(t, "Jan", loc)
		}
		return pad(int(t.Month()), n)
	case 'd':
		return pad(t.Day(), n)
	case 'E':
		if n >= 4 {
			return monday.Format(t, "Monday", loc)
		}
		return monday.Format(t, "Mon", loc)
	case 'a':
		return monday.Format(t, "PM", loc)
	case 'H':
		return pad(t.Hour(), n)
	case 'k':
		h := t.Hour()
		if h == 0 {
			h = 24
		}
		return pad(h, n)
	case 'K':
		return pad(t.Hour()%12, n)
	case 'h':
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		return pad(h, n)
	case 'm':
		return pad(t.Minute(), n)
	case 's':
		return pad(t.Second(), n)
	case 'S':
		return pad(t.Nanosecond()/int(time.Millisecond), n)
	case 'z':
		name, _ := t.Zone()
		return name
	case 'Z':
		return t.Format("-0700")
	}
	return ""
}

func pad(v, width int) string {
	s := strconv.Itoa(v)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
