// Package broadcast delivers signals to listeners outside the agent process,
// such as a screen-capture helper.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"command-agent/agent/internal/logger"

	"github.com/redis/go-redis/v9"
)

const SignalCaptureScreenshot = "capture_screenshot"

type Signal struct {
	Name     string         `json:"name"`
	DeviceID string         `json:"device_id"`
	Params   map[string]any `json:"params,omitempty"`
	SentAt   time.Time      `json:"sent_at"`
}

type Broadcaster interface {
	Broadcast(ctx context.Context, sig Signal) error
}

// Redis publishes signals as JSON on a pub/sub channel.
type Redis struct {
	client  *redis.Client
	channel string
}

func NewRedis(addr, channel string) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{Addr: addr}), channel: channel}
}

func (r *Redis) Broadcast(ctx context.Context, sig Signal) error {
	b, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	n, err := r.client.Publish(ctx, r.channel, b).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", sig.Name, err)
	}
	if n == 0 {
		logger.Warnf("Signal %s published on %s with no subscribers", sig.Name, r.channel)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }

// Log only records the signal; used when no listener transport is configured.
type Log struct{}

func (Log) Broadcast(ctx context.Context, sig Signal) error {
	logger.Infof("Signal %s for %s (no listener configured)", sig.Name, sig.DeviceID)
	return nil
}
