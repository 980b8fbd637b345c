// Package invite mints short-lived, Redis-backed codes that alias to a
// roomId, grounded on the teacher's services/invite_service.go. This is
// purely an alternate room lookup: no identity is established or verified,
// so it doesn't contradict the "no authentication" non-goal.
package invite

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Resolve when the code is unknown or expired.
var ErrNotFound = errors.New("invite_code_not_found")

// DefaultTTL matches the teacher's invite links: long enough for a
// casually-shared link to still work, short enough that stale codes don't
// accumulate forever in Redis.
const DefaultTTL = 24 * time.Hour

// Service mints and resolves invite codes against Redis.
type Service struct {
	client *redis.Client
}

// New wraps an existing Redis client. client may be nil, in which case
// Create returns an error and Resolve returns ErrNotFound — invite codes
// are an optional feature, not a correctness dependency (§3 Persistence
// posture).
func New(client *redis.Client) *Service {
	return &Service{client: client}
}

func generateCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func redisKey(code string) string {
	return fmt.Sprintf("invite:%s", code)
}

// Create mints a new code aliasing roomID, valid for ttl (0 uses DefaultTTL).
func (s *Service) Create(ctx context.Context, roomID string, ttl time.Duration) (string, error) {
	if s.client == nil {
		return "", errors.New("invite service has no redis client configured")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(code), roomID, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store invite code: %w", err)
	}
	return code, nil
}

// Resolve looks up the roomId a code aliases to.
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	if s.client == nil {
		return "", ErrNotFound
	}
	roomID, err := s.client.Get(ctx, redisKey(code)).Result()
	if err != nil {
		return "", ErrNotFound
	}
	return roomID, nil
}
