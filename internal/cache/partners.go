// Package cache keeps the verified-partner listing in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rightsplace/rightsplace/internal/domain"
)

const verifiedPartnersKey = "rightsplace:partners:verified"

// PartnerCache stores the verified partner listing.
type PartnerCache interface {
	// GetVerified returns ok=false on a miss.
	GetVerified(ctx context.Context) ([]domain.UserProfile, bool, error)
	SetVerified(ctx context.Context, partners []domain.UserProfile) error
	Invalidate(ctx context.Context) error
}

// NewPartnerCache returns a Redis-backed cache, or a no-op cache when client is nil.
func NewPartnerCache(client *redis.Client, ttl time.Duration) PartnerCache {
	if client == nil {
		return noopCache{}
	}
	return &redisPartnerCache{client: client, ttl: ttl}
}

type redisPartnerCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (c *redisPartnerCache) GetVerified(ctx context.Context) ([]domain.UserProfile, bool, error) {
	raw, err := c.client.Get(ctx, verifiedPartnersKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var partners []domain.UserProfile
	if err := json.Unmarshal(raw, &partners); err != nil {
		// A corrupt entry counts as a miss; the caller will overwrite it.
		return nil, false, nil
	}
	return partners, true, nil
}

func (c *redisPartnerCache) SetVerified(ctx context.Context, partners []domain.UserProfile) error {
	if partners == nil {
		partners = []domain.UserProfile{}
	}
	raw, err := json.Marshal(partners)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, verifiedPartnersKey, raw, c.ttl).Err()
}

func (c *redisPartnerCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, verifiedPartnersKey).Err()
}

type noopCache struct{}

func (noopCache) GetVerified(context.Context) ([]domain.UserProfile, bool, error) {
	return nil, false, nil
}

func (noopCache) SetVerified(context.Context, []domain.UserProfile) error { return nil }

func (noopCache) Invalidate(context.Context) error { return nil }
