package broker

import (
	"fmt"
	"log/slog"

	"github.com/youmna-rabie/incident-relay/internal/config"
)

// NewPublisher builds the publish side described by cfg. hub backs the memory
// driver and may be nil for the others. ErrNotConfigured is returned when the
// publish credentials are absent.
func NewPublisher(cfg config.BrokerConfig, hub *Hub) (Publisher, error) {
	if !cfg.PublishConfigured() {
		return nil, ErrNotConfigured
	}
	codec, err := NewCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case config.DriverMemory:
		if hub == nil {
			return nil, fmt.Errorf("memory driver needs an in-process hub")
		}
		return hub, nil
	case config.DriverRedis:
		rdb, err := NewRedisClient(cfg.Address(), cfg.AppID, cfg.Secret)
		if err != nil {
			return nil, err
		}
		return NewRedisPublisher(rdb, cfg.Key, codec), nil
	case config.DriverMQTT:
		return DialMQTTPublisher(MQTTOptions{
			URL:      cfg.Address(),
			Username: cfg.AppID,
			Password: cfg.Secret,
			Key:      cfg.Key,
			Codec:    codec,
		})
	default:
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Driver)
	}
}

// NewSubscriber builds the subscribe side described by cfg. Only the public
// key is required; connection credentials, if any, come from the URL.
func NewSubscriber(cfg config.BrokerConfig, hub *Hub, logger *slog.Logger) (Subscriber, error) {
	if !cfg.SubscribeConfigured() {
		return nil, ErrNotConfigured
	}
	codec, err := NewCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case config.DriverMemory:
		if hub == nil {
			return nil, fmt.Errorf("memory driver needs an in-process hub")
		}
		return hub, nil
	case config.DriverRedis:
		rdb, err := NewRedisClient(cfg.Address(), "", "")
		if err != nil {
			return nil, err
		}
		return NewRedisSubscriber(rdb, cfg.Key, codec, logger), nil
	case config.DriverMQTT:
		return NewMQTTSubscriber(MQTTOptions{URL: cfg.Address(), Key: cfg.Key, Codec: codec}, logger), nil
	default:
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Driver)
	}
}
