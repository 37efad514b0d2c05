package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	weekChannelPrefix = "challenge:week:"
	publishTimeout    = 5 * time.Second
)

// weekChannel is the pub/sub channel of the week starting on the given
// YYYY-MM-DD Tuesday. Every replica watching that week subscribes to it.
func weekChannel(week string) string {
	return weekChannelPrefix + week
}

// weekMessage is what travels between replicas. Week is repeated in the body
// so a subscriber can reject a message routed to the wrong channel.
type weekMessage struct {
	Week        string          `json:"week"`
	Event       string          `json:"event"`
	Data        json.RawMessage `json:"data"`
	PublishedAt time.Time       `json:"published_at"`
}

// RedisWeekBus carries vote tallies and winner announcements between
// replicas over Redis pub/sub, one channel per challenge week.
type RedisWeekBus struct {
	client redis.UniversalClient
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisWeekBus creates the bus over client.
func NewRedisWeekBus(client redis.UniversalClient, logger *zap.Logger) *RedisWeekBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisWeekBus{client: client, logger: logger, now: time.Now}
}

// PublishWeekEvent sends event to every replica with clients on week.
func (b *RedisWeekBus) PublishWeekEvent(week, event string, payload []byte) error {
	body, err := json.Marshal(weekMessage{Week: week, Event: event, Data: payload, PublishedAt: b.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode %s for week %s: %w", event, week, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.client.Publish(ctx, weekChannel(week), body).Err(); err != nil {
		return fmt.Errorf("publish %s for week %s: %w", event, week, err)
	}
	return nil
}

// SubscribeWeek calls handler for each event published on week until the
// returned cancel is called. The subscription is confirmed before returning.
func (b *RedisWeekBus) SubscribeWeek(week string, handler func(event string, payload []byte)) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := b.client.Subscribe(ctx, weekChannel(week))
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe week %s: %w", week, err)
	}
	go b.consume(ctx, sub, week, handler)
	return cancel, nil
}

func (b *RedisWeekBus) consume(ctx context.Context, sub *redis.PubSub, week string, handler func(string, []byte)) {
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
			m, err := decodeWeekMessage(msg.Payload)
			if err != nil || m.Week != week {
				b.logger.Debug("dropping week event", zap.String("week", week), zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			handler(m.Event, m.Data)
		}
	}
}

func decodeWeekMessage(raw string) (weekMessage, error) {
	var m weekMessage
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return m, err
	}
	if m.Event == "" {
		return m, errors.New("week message without event")
	}
	return m, nil
}
