package notify

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Subscribe listens for published changes and hands each payload to broadcast,
// keyed by board id. It reconnects when the pub/sub channel closes and returns
// when ctx is cancelled.
func Subscribe(
	ctx context.Context,
	logger *log.Logger,
	rc *redis.Client,
	channel string,
	broadcast func(boardID string, data []byte),
) {
	for {
		sub := rc.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var ev struct {
					BoardID string `json:"boardId"`
				}
				if err := sonic.UnmarshalString(msg.Payload, &ev); err != nil || ev.BoardID == "" {
					logger.Errorf("unable to parse change: %v", err)
					continue
				}
				broadcast(ev.BoardID, []byte(msg.Payload))
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Error("pubsub channel closed, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
