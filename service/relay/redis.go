package relay

import (
	"context"

	"github.com/redis/go-redis/v9"

	"relaygate/logger"
)

// RedisRelay fans envelopes out over a Redis Pub/Sub channel.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	pubsub  *redis.PubSub
}

func NewRedisRelay(rdb *redis.Client, channel string) *RedisRelay {
	return &RedisRelay{rdb: rdb, channel: channel}
}

func (r *RedisRelay) Publish(ctx context.Context, env *Envelope) error {
	payload, err := env.Marshal()
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, payload).Err()
}

func (r *RedisRelay) Start(ctx context.Context, onEvent func(*Envelope)) error {
	r.pubsub = r.rdb.Subscribe(ctx, r.channel)
	// Force the subscription before declaring the relay up.
	if _, err := r.pubsub.Receive(ctx); err != nil {
		return err
	}
	ch := r.pubsub.Channel()
	go func() {
		for msg := range ch {
			env, err := Unmarshal([]byte(msg.Payload))
			if err != nil {
				logger.Warnf("[relay] drop malformed envelope: %v", err)
				continue
			}
			onEvent(env)
		}
		logger.Warnf("[relay] redis subscription closed, cross-instance delivery off")
	}()
	return nil
}

func (r *RedisRelay) Close() error {
	if r.pubsub != nil {
		return r.pubsub.Close()
	}
	return nil
}
