package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist marks session tokens revoked before their natural expiry,
// backed by Redis. JWTs cannot be invalidated server-side on their own, so
// logout stores the token here for its remaining lifetime; entries expire
// together with the token and need no cleanup.
type TokenBlacklist struct {
	client *redis.Client
}

func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client}
}

// Revoke blacklists a token for the given remaining lifetime.
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired; nothing to store.
		return nil
	}
	key := blacklistKey(token)
	if err := b.client.Set(ctx, key, "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("blacklisting token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token has been blacklisted.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	exists, err := b.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("checking token blacklist: %w", err)
	}
	return exists > 0, nil
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}
