package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLChannel bounds how long a missed eviction can serve a deleted channel
const TTLChannel = 30 * time.Minute

// Key prefixes
const (
	PrefixChannel = "chat:channel:"
)

// ErrMiss is returned when a key is absent or Redis is not configured
var ErrMiss = errors.New("cache miss")

// ChannelParticipants is the immutable part of a channel
type ChannelParticipants struct {
	ChannelID   uint64 `json:"channel_id"`
	RequestID   uint64 `json:"request_id"`
	ListingID   uint64 `json:"listing_id"`
	RequesterID uint64 `json:"requester_id"`
	ResponderID uint64 `json:"responder_id"`
}

// Service Redis cache service interface
type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	GetChannel(ctx context.Context, channelID uint64) (*ChannelParticipants, error)
	SetChannel(ctx context.Context, p *ChannelParticipants) error
	DeleteChannel(ctx context.Context, channelID uint64) error

	IsAvailable() bool
}

// redisCache Redis backed cache
type redisCache struct {
	client *redis.Client
}

// NewService creates a cache service. A nil client yields a cache that always misses.
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

// IsAvailable reports whether Redis is configured
func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

// Get loads a JSON value
func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// Set stores a JSON value
func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes keys
func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func channelKey(channelID uint64) string {
	return fmt.Sprintf("%s%d", PrefixChannel, channelID)
}

func (c *redisCache) GetChannel(ctx context.Context, channelID uint64) (*ChannelParticipants, error) {
	var p ChannelParticipants
	if err := c.Get(ctx, channelKey(channelID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *redisCache) SetChannel(ctx context.Context, p *ChannelParticipants) error {
	return c.Set(ctx, channelKey(p.ChannelID), p, TTLChannel)
}

func (c *redisCache) DeleteChannel(ctx context.Context, channelID uint64) error {
	return c.Delete(ctx, channelKey(channelID))
}
