// Package redisq is the thin Redis wrapper pkg/agent builds its command
// queue and telemetry publishing on: a blocking list pop for incoming jobs,
// plus publish/hash-write for status telemetry, mirroring the shape of a
// typical Redis-backed command-and-telemetry client in this codebase's style.
package redisq

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps a go-redis handle with the small set of operations the GRC
// agent needs: a blocking queue pop, a status hash writer, and publish.
type Client struct {
	client *redis.Client
	ctx    context.Context
}

// New opens a connection to addr and verifies it with a Ping.
func New(addr string, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisq: connect to %s: %w", addr, err)
	}
	return &Client{client: client, ctx: ctx}, nil
}

// WriteInt writes an integer field to a status hash.
func (c *Client) WriteInt(key, field string, value int) error {
	return c.client.HSet(c.ctx, key, field, value).Err()
}

// WriteString writes a string field to a status hash.
func (c *Client) WriteString(key, field, value string) error {
	return c.client.HSet(c.ctx, key, field, value).Err()
}

// Publish publishes a binary-safe message on channel.
func (c *Client) Publish(channel string, message []byte) error {
	return c.client.Publish(c.ctx, channel, message).Err()
}

// BRPop blocks on key waiting for a job, honoring timeout (0 = block
// indefinitely). redis.Nil (a plain timeout) is reported as a nil slice and
// a nil error, matching a blocking pop's usual semantics.
func (c *Client) BRPop(timeout time.Duration, key string) ([]byte, error) {
	result, err := c.client.BRPop(c.ctx, timeout, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		log.Printf("redisq: BRPOP on %s: %v", key, err)
		return nil, err
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("redisq: unexpected BRPOP result length %d", len(result))
	}
	return []byte(result[1]), nil
}

// LPush enqueues a job payload on key, for callers that submit work rather
// than consume it (e.g. a CLI front-end to the agent's queue).
func (c *Client) LPush(key string, payload []byte) error {
	return c.client.LPush(c.ctx, key, payload).Err()
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}
