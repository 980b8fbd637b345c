// Package config loads process configuration from the environment (and an
// optional .env file via godotenv — declared in the teacher's go.mod but
// never actually loaded; this build calls godotenv.Load()), replacing the
// teacher's hardcoded connection strings in main.go with typed, overridable
// defaults matching spec §6.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process-wide set of tunables, defaulted per spec §6.
type Config struct {
	Port string

	MaxUsersPerRoom int
	MaxOperations   int

	EmptyRoomGrace   time.Duration
	EmptyRoomReap    time.Duration
	IdleRoomReap     time.Duration
	ReaperInterval   time.Duration

	RedisAddr     string
	RedisPassword string

	PostgresDSN string

	S3Bucket string
	S3Region string
}

// Load reads .env (if present; a missing file is not an error) and then
// the process environment, falling back to spec §6 defaults for anything
// unset.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		// No .env file is the common case outside local development;
		// env vars set directly in the process still apply.
	}

	return Config{
		Port: getString("PORT", "8080"),

		MaxUsersPerRoom: getInt("MAX_USERS_PER_ROOM", 20),
		MaxOperations:   getInt("MAX_OPERATIONS", 1000),

		EmptyRoomGrace: getDuration("EMPTY_ROOM_GRACE", 60*time.Second),
		EmptyRoomReap:  getDuration("EMPTY_ROOM_REAP", 5*time.Minute),
		IdleRoomReap:   getDuration("IDLE_ROOM_REAP", time.Hour),
		ReaperInterval: getDuration("ROOM_REAP_INTERVAL", 5*time.Minute),

		RedisAddr:     getString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getString("REDIS_PASSWORD", ""),

		PostgresDSN: getString("POSTGRES_DSN", ""),

		S3Bucket: getString("S3_BUCKET", ""),
		S3Region: getString("S3_REGION", "us-east-1"),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
