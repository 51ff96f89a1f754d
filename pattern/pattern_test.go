package pattern

import (
	"errors"
	"testing"
)

func TestParseSegments(t *testing.T) {
	p, err := Parse("Hello {0}, you have {1,number,integer} messages")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields := p.Fields()
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Index != 0 || fields[0].Type != TypeNone {
		t.Fatalf("unexpected first field %+v", fields[0])
	}
	if fields[1].Index != 1 || fields[1].Type != TypeNumber || fields[1].Style != "integer" {
		t.Fatalf("unexpected second field %+v", fields[1])
	}
	if p.String() != "Hello {0}, you have {1,number,integer} messages" {
		t.Fatalf("String() should return the source, got %q", p.String())
	}
}

func TestParseTypeSpacing(t *testing.T) {
	p := MustParse("{0, number , integer}")
	f := p.Fields()[0]
	if f.Type != TypeNumber {
		t.Fatalf("expected number type, got %v", f.Type)
	}
	if f.Style != " integer" {
		t.Fatalf("style keeps its spaces, got %q", f.Style)
	}
}

func TestMaxArgIndex(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    int
	}{
		{"empty", "", -1},
		{"plain text", "no fields here", -1},
		{"quoted braces", "'{0}' is literal", -1},
		{"escaped quote", "isn''t {0}", 0},
		{"single field", "{3}", 3},
		{"typed fields", "{0,number} {1,date,short}", 1},
		{"choice hides higher index", "{2,choice,1#{3}}", 3},
		{"nested choices", "{0} {1}{2,choice,0#|1# flag}{3,choice,0#|0< - {4}}", 4},
		{"choice without leading space", "{0} {1}{2,choice,0#|1# flag}{3,choice,0#|0<- {4}}", 4},
		{"two levels deep", "{0,choice,0#a|1#'{1,choice,0#b|1#{5}}'}", 5},
		{"choice text without fields", "{1,choice,0#none|1#one}", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MaxArgIndex(tt.pattern)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("MaxArgIndex(%q) = %d, want %d", tt.pattern, got, tt.want)
			}
			if p := MustParse(tt.pattern); p.Arity() != tt.want+1 {
				t.Fatalf("Arity() = %d, want %d", p.Arity(), tt.want+1)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{"unclosed field", "Hello {0"},
		{"non numeric index", "{name}"},
		{"negative index", "{-1}"},
		{"huge index", "{100000}"},
		{"unknown type", "{0,plural}"},
		{"bad number pattern", "{0,number,#.#.#}"},
		{"bad date pattern", "{0,date,yyyy-QQ}"},
		{"choice without limit", "{0,choice,#a}"},
		{"choice bad limit", "{0,choice,x#a}"},
		{"choice descending", "{0,choice,2#a|1#b}"},
		{"choice bad nested", "{0,choice,0#a|1#{x}}"},
		{"unquoted nested choice", "{0,choice,0#a|1#{1,choice,0#b|1#{5}}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.pattern)
			if err == nil {
				t.Fatalf("expected error for %q", tt.pattern)
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SyntaxError, got %T", err)
			}
			if _, err := MaxArgIndex(tt.pattern); err == nil {
				t.Fatalf("MaxArgIndex should fail for %q", tt.pattern)
			}
		})
	}
}

func TestUnmatchedClosingBraceIsLiteral(t *testing.T) {
	p, err := Parse("a } b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.MaxArgIndex() != -1 {
		t.Fatalf("expected no fields, got %d", p.MaxArgIndex())
	}
}

func TestEmptyTypeIgnoresStyle(t *testing.T) {
	p := MustParse("{0,,#}")
	if f := p.Fields()[0]; f.Type != TypeNone {
		t.Fatalf("expected untyped field, got %v", f.Type)
	}
}
