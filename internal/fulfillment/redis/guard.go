package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Guard serializes concurrent deliveries of the same checkout session.
// The DB's primary key stays the authoritative idempotency check; this is
// the cheap fast path that keeps webhook retry storms off the database.
type Guard struct {
	Client *redis.Client
}

func NewGuard(client *redis.Client) *Guard {
	return &Guard{Client: client}
}

// getGuardTTL returns the session guard TTL from the environment or the
// default value.
func (g *Guard) getGuardTTL() time.Duration {
	defaultTTL := 2 * time.Minute

	ttlStr := os.Getenv("FULFILL_GUARD_TTL_SECONDS")
	if ttlStr == "" {
		return defaultTTL
	}

	ttlSec, err := strconv.Atoi(ttlStr)
	if err != nil {
		return defaultTTL
	}
	return time.Duration(ttlSec) * time.Second
}

// Acquire takes the per-session guard. Returns false when another delivery
// of the same session is already being processed.
func (g *Guard) Acquire(ctx context.Context, sessionID string) (bool, error) {
	key := "fulfill_lock:" + sessionID
	return g.Client.SetNX(ctx, key, "processing", g.getGuardTTL()).Result()
}

// Release drops the guard once fulfillment finishes (in either direction);
// the TTL covers crashed workers.
func (g *Guard) Release(ctx context.Context, sessionID string) error {
	key := fmt.Sprintf("fulfill_lock:%s", sessionID)
	_, err := g.Client.Del(ctx, key).Result()
	return err
}
