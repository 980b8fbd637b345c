package userid

import (
	"strings"
	"testing"
)

func TestGenerateHasExpectedShapeAndIsUnique(t *testing.T) {
	a := Generate()
	b := Generate()

	if !strings.HasPrefix(a, "user_") {
		t.Fatalf("expected user_ prefix, got %s", a)
	}
	parts := strings.Split(a, "_")
	if len(parts) != 3 {
		t.Fatalf("expected 3 underscore-separated parts, got %d in %s", len(parts), a)
	}
	if a == b {
		t.Fatalf("expected distinct ids across calls, both got %s", a)
	}
}

func TestDisplayNameIsTwoWords(t *testing.T) {
	name := DisplayName()
	parts := strings.Split(name, " ")
	if len(parts) != 2 {
		t.Fatalf("expected an 'Adjective Noun' name, got %q", name)
	}
	if parts[0] == "" || parts[1] == "" {
		t.Fatalf("expected non-empty words, got %q", name)
	}
}

func TestDisplayNameVariesAcrossCalls(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		seen[DisplayName()] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected variation across 20 calls, got %d distinct names", len(seen))
	}
}
