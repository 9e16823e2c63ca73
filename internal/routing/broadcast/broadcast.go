// Package broadcast fans routing cache invalidations out to every API process
// over a Redis pub/sub channel.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "feeflow:routing:invalidate"

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

// Applier is the process-local side of an invalidation.
type Applier interface {
	Invalidate(organizationID string)
}

// NewClient returns a go-redis client after checking the connection with PING.
func NewClient(addr, password string) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis: addr is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}

type Broadcaster struct {
	client  *redis.Client
	channel string
	local   Applier
}

func New(client *redis.Client, channel string, local Applier) *Broadcaster {
	if channel == "" {
		channel = DefaultChannel
	}

	return &Broadcaster{client: client, channel: channel, local: local}
}

// Invalidate applies the invalidation to this process and publishes it for the
// others. The local cache is expired even when publishing fails.
func (b *Broadcaster) Invalidate(ctx context.Context, organizationID string) error {
	b.local.Invalidate(organizationID)

	if err := b.client.Publish(ctx, b.channel, organizationID).Err(); err != nil {
		return fmt.Errorf("publishing routing invalidation: %w", err)
	}

	return nil
}

// Listen applies invalidations published by any process until ctx is done.
func (b *Broadcaster) Listen(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}

	slog.Info("listening for routing invalidations", "channel", b.channel)

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			b.apply(msg.Payload)
		}
	}
}

func (b *Broadcaster) apply(payload string) {
	organizationID := strings.TrimSpace(payload)
	if organizationID == "" {
		slog.Warn("ignoring empty routing invalidation", "channel", b.channel)
		return
	}

	b.local.Invalidate(organizationID)
}
