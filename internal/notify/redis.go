package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/eldtechnologies/messenger/internal/metrics"
	"github.com/eldtechnologies/messenger/internal/models"
)

const (
	// StreamKey is the capped stream holding every notification.
	StreamKey = "messenger:events"

	streamMaxLen = 100_000
)

// InboxChannel returns the pub/sub channel for notifications to recipient.
func InboxChannel(recipient models.Address) string {
	return fmt.Sprintf("messenger:inbox:%s", recipient)
}

// RedisPublisher appends notifications to a stream and announces them on the
// recipient's channel.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, txID uuid.UUID, ev models.MessageSent) error {
	start := time.Now()
	defer func() {
		metrics.RedisLatency.Observe(time.Since(start).Seconds())
	}()

	n := NewNotification(txID, ev)
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	pipe := p.client.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"id":        n.ID,
			"recipient": n.Recipient,
			"payload":   string(data),
		},
	})
	pipe.Publish(ctx, InboxChannel(ev.Recipient), string(data))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish notification %s: %w", n.ID, err)
	}
	return nil
}
