package pattern

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Choice selects one of several texts by comparing a number against ascending limits.
//
// A branch "limit#text" (or "limit≤text") matches numbers >= limit and
// "limit<text" matches numbers > limit. Limits may be written ∞ or -∞.
type Choice struct {
	source string
	limits []float64
	texts  []string
	subs   []*Pattern
}

// ParseChoice parses a choice style.
func ParseChoice(s string) (*Choice, error) {
	c := &Choice{source: s}

	var (
		seg     [2]strings.Builder
		part    int
		inQuote bool
		start   float64
		old     = math.NaN()
	)

	add := func() error {
		text := seg[1].String()
		c.limits = append(c.limits, start)
		c.texts = append(c.texts, text)
		var sub *Pattern
		if strings.ContainsRune(text, '{') {
			var err error
			if sub, err = Parse(text); err != nil {
				return err
			}
		}
		c.subs = append(c.subs, sub)
		return nil
	}

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '\'':
			if i+1 < len(runes) && runes[i+1] == '\'' {
				seg[part].WriteRune(ch)
				i++
			} else {
				inQuote = !inQuote
			}
		case inQuote:
			seg[part].WriteRune(ch)
		case ch == '<' || ch == '#' || ch == '≤':
			if seg[0].Len() == 0 {
				return nil, syntaxErrorf(s, "each choice interval must contain a number before a format")
			}
			limit, err := parseLimit(seg[0].String())
			if err != nil {
				return nil, syntaxErrorf(s, "%v", err)
			}
			if ch == '<' && !math.IsInf(limit, 0) {
				limit = math.Nextafter(limit, math.Inf(1))
			}
			if limit <= old {
				return nil, syntaxErrorf(s, "choice intervals must be in ascending order")
			}
			start = limit
			seg[0].Reset()
			part = 1
		case ch == '|':
			if err := add(); err != nil {
				return nil, err
			}
			old = start
			seg[1].Reset()
			part = 0
		default:
			seg[part].WriteRune(ch)
		}
	}

	if part == 1 {
		if err := add(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func parseLimit(s string) (float64, error) {
	switch s = strings.TrimSpace(s); s {
	case "∞", "+∞":
		return math.Inf(1), nil
	case "-∞":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid choice limit %q", s)
	}
	return f, nil
}

// String returns the style the choice was parsed from.
func (c *Choice) String() string {
	return c.source
}

// Len returns the number of branches.
func (c *Choice) Len() int {
	return len(c.limits)
}

// Limit returns the lower bound of branch i.
func (c *Choice) Limit(i int) float64 {
	return c.limits[i]
}

// Text returns the unquoted text of branch i.
func (c *Choice) Text(i int) string {
	return c.texts[i]
}

// Select returns the index of the last branch whose limit is <= x, or 0 when
// x is below every limit or NaN. It returns -1 for a choice without branches.
func (c *Choice) Select(x float64) int {
	if len(c.limits) == 0 {
		return -1
	}
	i := 0
	for i < len(c.limits) && x >= c.limits[i] {
		i++
	}
	return max(i-1, 0)
}

// MaxArgIndex returns the highest argument index referenced by any branch, or -1.
func (c *Choice) MaxArgIndex() int {
	n := -1
	for _, sub := range c.subs {
		if sub != nil {
			n = max(n, sub.MaxArgIndex())
		}
	}
	return n
}

func (c *Choice) format(b *strings.Builder, tag language.Tag, x float64, args []interface{}) error {
	i := c.Select(x)
	if i < 0 {
		return nil
	}
	if sub := c.subs[i]; sub != nil {
		return sub.format(b, tag, args)
	}
	b.WriteString(c.texts[i])
	return nil
}
