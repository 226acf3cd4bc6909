package eventsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/campus/core"
)

// RedisBroker shares events between processes through a Redis pub/sub channel.
// Events published by this process reach its own subscribers through Redis too.
type RedisBroker struct {
	client  *redis.Client
	channel string
	local   *InMemBroker
	logger  core.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

var _ core.EventBroker = (*RedisBroker)(nil)

// NewRedisClient connects to redis with short timeouts.
func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         conf.Redis.Address,
		Password:     conf.Redis.Password,
		DB:           conf.Redis.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// NewRedisBroker subscribes to `channel` and relays its events to the local subscribers until Close.
func NewRedisBroker(ctx context.Context, client *redis.Client, channel string, logger core.Logger) (*RedisBroker, error) {
	pubsub := client.Subscribe(ctx, channel)
	// wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.Wrap(err, "subscribing to "+channel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &RedisBroker{
		client:  client,
		channel: channel,
		local:   NewInMemBroker(),
		logger:  logger,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go b.relay(ctx, pubsub)
	return b, nil
}

func (b *RedisBroker) relay(ctx context.Context, pubsub *redis.PubSub) {
	defer close(b.done)
	defer func() { _ = pubsub.Close() }()

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var evt core.Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.logger.Warn("decoding event", err)
				continue
			}
			_ = b.local.Publish(ctx, evt)
		}
	}
}

func (b *RedisBroker) Publish(ctx context.Context, evt core.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}
	return errors.Wrap(b.client.Publish(ctx, b.channel, payload).Err(), "publishing event")
}

func (b *RedisBroker) Subscribe(ctx context.Context, topics ...string) (<-chan core.Event, error) {
	return b.local.Subscribe(ctx, topics...)
}

// Dropped counts the events lost by slow subscribers.
func (b *RedisBroker) Dropped() uint64 {
	return b.local.Dropped()
}

// Healthy verifies redis connectivity.
func (b *RedisBroker) Healthy(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close stops relaying events.
func (b *RedisBroker) Close() {
	b.cancel()
	<-b.done
}
