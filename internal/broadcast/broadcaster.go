// Package broadcast forwards item manager events to Redis Pub/Sub so that
// observers outside the game server (UI, audio, analytics) can follow them.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-redis/redis/v8"

	"github.com/gravitas-games/itemmanager/pkg/events"
)

const defaultBuffer = 256

type message struct {
	channel string
	payload []byte
	event   events.Type
}

// Broadcaster publishes events to Redis from a background goroutine. The
// game loop only encodes and enqueues, it never waits on the network.
type Broadcaster struct {
	redisClient *redis.Client
	prefix      string
	logger      *slog.Logger

	mu      sync.RWMutex
	queue   chan message
	closed  bool
	dropped atomic.Uint64
}

// NewBroadcaster creates a broadcaster publishing to "<prefix><owner>".
func NewBroadcaster(redisClient *redis.Client, prefix string, buffer int, logger *slog.Logger) *Broadcaster {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broadcaster{
		redisClient: redisClient,
		prefix:      prefix,
		logger:      logger,
		queue:       make(chan message, buffer),
	}
}

// Channel returns the Pub/Sub channel of an owner.
func (b *Broadcaster) Channel(owner string) string {
	return b.prefix + owner
}

// Attach subscribes the broadcaster to a bus.
func (b *Broadcaster) Attach(bus events.Bus) events.SubscriptionID {
	return bus.Subscribe(func(e events.Event) { b.Enqueue(e) })
}

// Enqueue encodes an event for publication. It reports false when the event
// was dropped because the queue is full or the broadcaster is closed.
func (b *Broadcaster) Enqueue(e events.Event) bool {
	data, err := json.Marshal(e)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", e.Type)
		return false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	select {
	case b.queue <- message{channel: b.Channel(e.Owner), payload: data, event: e.Type}:
		return true
	default:
		b.dropped.Add(1)
		b.logger.Warn("Event queue full, dropping event", "event_type", e.Type, "owner", e.Owner)
		return false
	}
}

// Dropped returns the number of events dropped on a full queue.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Run publishes queued events until ctx is cancelled or Close has been
// called and the queue drained.
func (b *Broadcaster) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-b.queue:
			if !ok {
				return nil
			}
			if err := b.publish(ctx, msg); err != nil {
				b.logger.Error("Failed to publish event", "error", err, "channel", msg.channel)
			}
		}
	}
}

// Close stops accepting events. Run returns once the queue is drained.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.queue)
}

func (b *Broadcaster) publish(ctx context.Context, msg message) error {
	if err := b.redisClient.Publish(ctx, msg.channel, msg.payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	b.logger.Debug("Event published", "channel", msg.channel, "event_type", msg.event)
	return nil
}
