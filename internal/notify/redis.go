package notify

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultChannel  = "ytq:queue:dirty"
	publishBuffer   = 256
	publishDeadline = 2 * time.Second
)

// RedisNotifier publishes dirty session IDs on a Redis channel.
//
// MarkDirty never blocks the caller: IDs are buffered and published by [RedisNotifier.Run]. When the
// buffer is full the mark is dropped and logged.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
	pending chan string
	logger  *log.Logger
}

// NewRedisNotifier creates a RedisNotifier publishing on channel (default [DefaultChannel]).
func NewRedisNotifier(rdb *redis.Client, channel string, logger *log.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &RedisNotifier{
		rdb:     rdb,
		channel: channel,
		pending: make(chan string, publishBuffer),
		logger:  shared.WithLogger(logger, "component", "redis-notifier", "channel", channel),
	}
}

// NewRedisClient builds a client from the configured address.
func NewRedisClient(cfg shared.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr})
}

// Channel returns the channel name notifications are published on.
func (n *RedisNotifier) Channel() string { return n.channel }

func (n *RedisNotifier) MarkDirty(sessionID string) {
	select {
	case n.pending <- sessionID:
	default:
		n.logger.Warn("dropping dirty notification, buffer full", "session", sessionID)
	}
}

// Run publishes buffered notifications until ctx is done.
func (n *RedisNotifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case id := <-n.pending:
			n.publish(ctx, id)
		}
	}
}

func (n *RedisNotifier) publish(ctx context.Context, sessionID string) {
	ctx, cancel := context.WithTimeout(ctx, publishDeadline)
	defer cancel()

	if err := n.rdb.Publish(ctx, n.channel, sessionID).Err(); err != nil {
		n.logger.Error("failed to publish dirty session", "session", sessionID, "err", err)
		return
	}
	n.logger.Debug("published dirty session", "session", sessionID)
}

// Subscribe delivers session IDs published on the notifier's channel until ctx is done.
func (n *RedisNotifier) Subscribe(ctx context.Context) (<-chan string, error) {
	sub := n.rdb.Subscribe(ctx, n.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
