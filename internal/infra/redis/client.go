package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/cemetery/internal/core/domain"
)

// Client wraps Redis operations shared between registry client instances.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newClient(rdb, cfg.Prefix), nil
}

func newClient(rdb *redis.Client, prefix string) *Client {
	if prefix == "" {
		prefix = "cemetery"
	}
	return &Client{rdb: rdb, prefix: prefix}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Key helpers
func (c *Client) roleKey(principal domain.Principal) string {
	return fmt.Sprintf("%s:role:%s", c.prefix, principal)
}

// RoleStore caches resolved roles in Redis so every client instance
// serving the same principal shares one answer until it expires.
type RoleStore struct {
	client *Client
}

// NewRoleStore creates a Redis-backed role store.
func NewRoleStore(client *Client) *RoleStore {
	return &RoleStore{client: client}
}

// Get returns the cached role for principal.
func (s *RoleStore) Get(ctx context.Context, principal domain.Principal) (domain.Role, bool, error) {
	val, err := s.client.rdb.Get(ctx, s.client.roleKey(principal)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get role failed: %w", err)
	}
	return domain.ParseRole(val), true, nil
}

// Set caches role with ttl.
func (s *RoleStore) Set(ctx context.Context, principal domain.Principal, role domain.Role, ttl time.Duration) error {
	if err := s.client.rdb.Set(ctx, s.client.roleKey(principal), string(role), ttl).Err(); err != nil {
		return fmt.Errorf("set role failed: %w", err)
	}
	return nil
}

// Delete evicts the principal's cached role.
func (s *RoleStore) Delete(ctx context.Context, principal domain.Principal) error {
	if err := s.client.rdb.Del(ctx, s.client.roleKey(principal)).Err(); err != nil {
		return fmt.Errorf("delete role failed: %w", err)
	}
	return nil
}
