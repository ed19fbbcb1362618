package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/craftbridge/artisanmatch/internal/db"
)

// Publish sends a message to a channel.
func (s *Store) Publish(ctx context.Context, channel, message string) error {
	cmd := s.b().Publish().Channel(channel).Message(message).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpPublish, Err: err}
	}
	return nil
}

// Subscribe blocks delivering channel messages to handler until ctx is
// cancelled. Callers run it in its own goroutine.
func (s *Store) Subscribe(ctx context.Context, channel string, handler func(message string)) error {
	err := s.client.Receive(ctx, s.b().Subscribe().Channel(channel).Build(),
		func(msg rueidis.PubSubMessage) {
			handler(msg.Message)
		})
	if err != nil && ctx.Err() == nil {
		return &db.Error{Op: db.OpSubscribe, Err: err}
	}
	return nil
}
