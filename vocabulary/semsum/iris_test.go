package semsum

import (
	"testing"
)

func TestNewNamespace(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{"empty uses default", "", DefaultBase},
		{"trailing slash kept", "https://data.example/", "https://data.example/"},
		{"hash kept", "https://data.example/ns#", "https://data.example/ns#"},
		{"slash appended", "https://data.example/sum", "https://data.example/sum/"},
		{"whitespace trimmed", "  https://x.org/  ", "https://x.org/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewNamespace(tt.base).Base(); got != tt.want {
				t.Errorf("Base() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultNamespaceIRIs(t *testing.T) {
	ns := NewNamespace("")

	if got := ns.Extent(); got != "http://example.org/vocab#extent" {
		t.Errorf("Extent() = %q", got)
	}
	if got := ns.Pattern(3); got != "http://example.org/pattern/3" {
		t.Errorf("Pattern(3) = %q", got)
	}
	if got := ns.Literal("abc"); got != "http://example.org/literal/abc" {
		t.Errorf("Literal() = %q", got)
	}
}

func TestPrefixes(t *testing.T) {
	p := NewNamespace("").Prefixes()

	for _, k := range []string{"rdf", "xsd", "sum", "pattern", "literal"} {
		if _, ok := p[k]; !ok {
			t.Errorf("missing prefix %q", k)
		}
	}
	if p["sum"] != "http://example.org/vocab#" {
		t.Errorf("sum prefix = %q", p["sum"])
	}
}
