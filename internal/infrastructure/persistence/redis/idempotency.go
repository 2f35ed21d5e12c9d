package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/skilltrek/skilltrek-hub/internal/domain/progression"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
)

// DefaultDedupTTL is how long an award event key stays fenced. Replays of
// the same logical event inside this window are rejected; the window only
// needs to outlive request retries and double-clicks, completed sections
// are permanently fenced by the section_progress table.
const DefaultDedupTTL = 24 * time.Hour

// IdempotencyStore fences award event keys with SETNX. The first caller to
// mark a key wins; everyone else inside the TTL window loses.
type IdempotencyStore struct {
	client *Client
	ttl    time.Duration
}

var _ progression.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates an IdempotencyStore. A non-positive ttl falls
// back to DefaultDedupTTL.
func NewIdempotencyStore(client *Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// MarkOnce returns true when this call is the first to mark the key.
func (s *IdempotencyStore) MarkOnce(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, shared.ErrInvalidEventKey
	}

	first, err := s.client.Redis().SetNX(ctx, PrefixAward+key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return first, nil
}

// Unmark releases a key claimed by MarkOnce. Called when the award behind
// the key failed to persist, so the client's retry can claim it again.
func (s *IdempotencyStore) Unmark(ctx context.Context, key string) error {
	if key == "" {
		return shared.ErrInvalidEventKey
	}

	if err := s.client.Redis().Del(ctx, PrefixAward+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}
