package config

import "testing"

func TestGetIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("MAX_USERS_PER_ROOM", "not-a-number")
	if v := getInt("MAX_USERS_PER_ROOM", 20); v != 20 {
		t.Fatalf("expected fallback 20, got %d", v)
	}
}

func TestGetIntUsesSetValue(t *testing.T) {
	t.Setenv("MAX_OPERATIONS", "500")
	if v := getInt("MAX_OPERATIONS", 1000); v != 500 {
		t.Fatalf("expected 500, got %d", v)
	}
}

func TestGetDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("IDLE_ROOM_REAP", "not-a-duration")
	if v := getDuration("IDLE_ROOM_REAP", 0); v != 0 {
		t.Fatalf("expected fallback 0, got %v", v)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port == "" {
		t.Fatal("expected a non-empty default port")
	}
	if cfg.MaxUsersPerRoom <= 0 {
		t.Fatal("expected a positive default MaxUsersPerRoom")
	}
}
