package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client holds the Redis connection used as a read-through product cache.
type Client struct {
	client *redis.Client
}

// NewClient connects to the Redis at REDIS_ADDR (REDIS_PASSWORD optional)
// and verifies connectivity with a ping.
func NewClient() (*Client, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil, fmt.Errorf("REDIS_ADDR environment variable not set")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Redis returns the underlying *redis.Client.
func (c *Client) Redis() *redis.Client {
	return c.client
}
