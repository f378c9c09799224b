package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	redisTopicSep     = ":"
	redisRetryDelay   = time.Second
	subscriptionQueue = 64
)

// NewRedisClient parses a redis:// URL. username and password are applied
// only when the URL carries no credentials of its own.
func NewRedisClient(url, username, password string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if opt.Username == "" && opt.Password == "" {
		opt.Username = username
		opt.Password = password
	}
	return redis.NewClient(opt), nil
}

// RedisPublisher publishes frames with PUBLISH on <key>:<channel>.
type RedisPublisher struct {
	rdb   *redis.Client
	key   string
	codec Codec
}

// NewRedisPublisher wraps rdb. The publisher owns rdb and closes it.
func NewRedisPublisher(rdb *redis.Client, key string, codec Codec) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, key: key, codec: codec}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel, event string, data []byte) error {
	frame, err := p.codec.Encode(event, data)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, topic(p.key, channel, redisTopicSep), frame).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

// RedisSubscriber opens a dedicated Pub/Sub connection per subscription.
type RedisSubscriber struct {
	rdb    *redis.Client
	key    string
	codec  Codec
	logger *slog.Logger
	retry  time.Duration
}

// NewRedisSubscriber wraps rdb. Close closes it.
func NewRedisSubscriber(rdb *redis.Client, key string, codec Codec, logger *slog.Logger) *RedisSubscriber {
	return &RedisSubscriber{rdb: rdb, key: key, codec: codec, logger: logger, retry: redisRetryDelay}
}

// Close releases the Redis client. Open subscriptions should be closed first.
func (s *RedisSubscriber) Close() error {
	return s.rdb.Close()
}

// Subscribe returns once the server has confirmed the subscription, so every
// message published afterwards is delivered.
func (s *RedisSubscriber) Subscribe(ctx context.Context, channel string, onState StateFunc) (Subscription, error) {
	notify(onState, StateConnecting)

	name := topic(s.key, channel, redisTopicSep)
	ps := s.rdb.Subscribe(ctx, name)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		notify(onState, StateDisconnected)
		return nil, fmt.Errorf("redis subscribe %s: %w", name, err)
	}
	notify(onState, StateConnected)

	runCtx, cancel := context.WithCancel(context.Background())
	sub := &redisSubscription{
		ps:      ps,
		channel: channel,
		codec:   s.codec,
		logger:  s.logger,
		retry:   s.retry,
		onState: onState,
		ch:      make(chan Message, subscriptionQueue),
		ctx:     runCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go sub.run()
	return sub, nil
}

type redisSubscription struct {
	ps      *redis.PubSub
	channel string
	codec   Codec
	logger  *slog.Logger
	retry   time.Duration
	onState StateFunc

	ch     chan Message
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) Messages() <-chan Message { return s.ch }

// run reads the Pub/Sub connection until Close. go-redis reconnects and
// resubscribes on the next Receive after a connection error; the
// subscribe confirmation that follows marks the connection as live again.
func (s *redisSubscription) run() {
	defer close(s.done)
	defer close(s.ch)

	connected := true
	for {
		raw, err := s.ps.Receive(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			if connected {
				connected = false
				notify(s.onState, StateDisconnected)
			}
			s.logger.Warn("redis subscription receive failed", "channel", s.channel, "error", err)
			select {
			case <-time.After(s.retry):
				notify(s.onState, StateConnecting)
			case <-s.ctx.Done():
				return
			}
			continue
		}

		switch m := raw.(type) {
		case *redis.Subscription:
			if m.Kind == "subscribe" && !connected {
				connected = true
				notify(s.onState, StateConnected)
			}
		case *redis.Message:
			event, data, err := s.codec.Decode([]byte(m.Payload))
			if err != nil {
				s.logger.Warn("dropping undecodable frame", "channel", s.channel, "error", err)
				continue
			}
			select {
			case s.ch <- Message{Channel: s.channel, Event: event, Data: data}:
			case <-s.ctx.Done():
				return
			}
		}
	}
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.ps.Close()
		<-s.done
		notify(s.onState, StateDisconnected)
	})
	return err
}
