package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// SettledChannel carries settlement events to realtime listeners.
const SettledChannel = "lngateway:settled"

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, channel string, event any) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, channel, jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

// Listen subscribes to a channel and forwards raw payloads until ctx is
// cancelled. The returned channel is closed on cancellation.
func (s *SignalService) Listen(ctx context.Context, channel string) <-chan string {
	pubsub := s.rdb.Subscribe(ctx, channel)
	out := make(chan string)

	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
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

	return out
}
