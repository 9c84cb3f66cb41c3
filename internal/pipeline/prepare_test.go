package pipeline

import (
	"testing"

	"github.com/dgallion1/docseg/internal/parser"
)

func prepareHash(t *testing.T, filename, content string) string {
	t.Helper()
	prep, err := Prepare(filename, []byte(content), parser.DefaultOptions)
	if err != nil {
		t.Fatalf("prepare %s: %v", filename, err)
	}
	return prep.ContentHash
}

func TestPrepare_HashDistinguishesStructure(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"header joined into paragraph", "# Intro\n\nHello world\n", "IntroHello world\n"},
		{"header versus paragraph", "# Intro\n\nHello world\n", "Intro\n\nHello world\n"},
		{"second header demoted", "# A\n\nx\n\n# B\n\ny\n", "# A\n\nx\n\nB\n\ny\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ha := prepareHash(t, "a.md", tt.a)
			hb := prepareHash(t, "b.md", tt.b)
			if ha == hb {
				t.Errorf("expected different hashes for %q and %q, both %s", tt.a, tt.b, ha)
			}
		})
	}
}

func TestPrepare_HashIgnoresFilename(t *testing.T) {
	content := "# Intro\n\nHello world\n"
	if a, b := prepareHash(t, "a.md", content), prepareHash(t, "copy.md", content); a != b {
		t.Errorf("expected identical content to hash alike, got %s and %s", a, b)
	}
	if h := prepareHash(t, "a.md", content); len(h) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h))
	}
}
