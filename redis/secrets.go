// Package redis provides a Redis-backed secret challenge store for
// deployments running more than one service instance, where secrets issued
// by one instance must be visible to the others. Secrets expire after the
// configured TTL instead of living for the process lifetime.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ambrosus/ambrodeo-backend/auth"
)

const secretKeyPrefix = "secret:"

// A SecretStore keeps challenge secrets in Redis with a TTL.
type SecretStore struct {
	cli *redis.Client
	ttl time.Duration
}

// Connect connects to the Redis server and pings it to ensure the
// connection is working.
func Connect(ctx context.Context, addr string, ttl time.Duration) (*SecretStore, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &SecretStore{
		cli: cli,
		ttl: ttl,
	}, nil
}

// Issue generates a fresh secret for the address and stores it with the
// configured TTL, overwriting any prior one.
func (s *SecretStore) Issue(ctx context.Context, address string) (string, error) {
	secret, err := auth.NewSecret()
	if err != nil {
		return "", err
	}
	key := secretKeyPrefix + strings.ToLower(address)
	if err := s.cli.Set(ctx, key, secret, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("set secret: %w", err)
	}
	return secret, nil
}

// Get returns the secret currently associated with the address. An expired
// secret is reported as absent.
func (s *SecretStore) Get(ctx context.Context, address string) (string, bool, error) {
	key := secretKeyPrefix + strings.ToLower(address)
	secret, err := s.cli.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get secret: %w", err)
	}
	return secret, true, nil
}
