package invite

import (
	"context"
	"testing"
)

func TestCreateWithoutClientFails(t *testing.T) {
	s := New(nil)
	_, err := s.Create(context.Background(), "room1", 0)
	if err == nil {
		t.Fatal("expected an error when no redis client is configured")
	}
}

func TestResolveWithoutClientIsNotFound(t *testing.T) {
	s := New(nil)
	_, err := s.Resolve(context.Background(), "deadbeef")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGenerateCodeIsHexAndUnique(t *testing.T) {
	a, err := generateCode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := generateCode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != 16 {
		t.Fatalf("expected a 16-hex-char code, got %q", a)
	}
	if a == b {
		t.Fatal("expected two generated codes to differ")
	}
}
