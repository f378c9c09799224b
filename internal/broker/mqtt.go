package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	mqttTopicSep      = "/"
	mqttQoS           = 0 // at-most-once, matching the relay's delivery contract
	mqttConnectWait   = 10 * time.Second
	mqttDisconnectMs  = 250
	mqttUnsubscribeMs = time.Second
)

// MQTTOptions describes how to reach an MQTT broker.
type MQTTOptions struct {
	URL      string
	Username string
	Password string
	Key      string
	Codec    Codec
}

func (o MQTTOptions) clientOptions(role string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(o.URL).
		SetClientID(fmt.Sprintf("incident-relay-%s-%s", role, uuid.NewString()[:8])).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true)

	if o.Username != "" {
		opts.SetUsername(o.Username)
	}
	if o.Password != "" {
		opts.SetPassword(o.Password)
	}
	return opts
}

func (o MQTTOptions) topic(channel string) string {
	return topic(o.Key, channel, mqttTopicSep)
}

// MQTTPublisher publishes frames with QoS 0 on <key>/<channel>.
type MQTTPublisher struct {
	client mqtt.Client
	opts   MQTTOptions
}

// DialMQTTPublisher connects to the broker, failing if it is not reachable
// within a few seconds.
func DialMQTTPublisher(opts MQTTOptions) (*MQTTPublisher, error) {
	client := mqtt.NewClient(opts.clientOptions("pub"))
	tok := client.Connect()
	if !tok.WaitTimeout(mqttConnectWait) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", opts.URL)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.URL, err)
	}
	return &MQTTPublisher{client: client, opts: opts}, nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, channel, event string, data []byte) error {
	frame, err := p.opts.Codec.Encode(event, data)
	if err != nil {
		return err
	}
	tok := p.client.Publish(p.opts.topic(channel), mqttQoS, false, frame)
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("mqtt publish: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(mqttDisconnectMs)
	return nil
}

// MQTTSubscriber opens one MQTT client per subscription. The client retries
// the initial connection and reconnects on its own; state changes are
// reported through the paho callbacks.
type MQTTSubscriber struct {
	opts   MQTTOptions
	logger *slog.Logger
}

func NewMQTTSubscriber(opts MQTTOptions, logger *slog.Logger) *MQTTSubscriber {
	return &MQTTSubscriber{opts: opts, logger: logger}
}

// Close is a no-op; each subscription disconnects its own client.
func (s *MQTTSubscriber) Close() error { return nil }

func (s *MQTTSubscriber) Subscribe(ctx context.Context, channel string, onState StateFunc) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &mqttSubscription{
		channel: channel,
		topic:   s.opts.topic(channel),
		codec:   s.opts.Codec,
		logger:  s.logger,
		onState: onState,
		ch:      make(chan Message, subscriptionQueue),
		done:    make(chan struct{}),
	}

	opts := s.opts.clientOptions("sub").
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(sub.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			s.logger.Warn("mqtt connection lost", "channel", channel, "error", err)
			sub.setState(StateDisconnected)
		}).
		SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
			sub.setState(StateConnecting)
		})

	sub.setState(StateConnecting)
	sub.client = mqtt.NewClient(opts)
	// With connect retry enabled the token only completes once connected, so
	// it is not waited on here.
	sub.client.Connect()
	return sub, nil
}

type mqttSubscription struct {
	client  mqtt.Client
	channel string
	topic   string
	codec   Codec
	logger  *slog.Logger
	onState StateFunc

	mu     sync.RWMutex
	closed bool
	ch     chan Message
	done   chan struct{}
	once   sync.Once
}

func (s *mqttSubscription) Messages() <-chan Message { return s.ch }

func (s *mqttSubscription) onConnect(c mqtt.Client) {
	tok := c.Subscribe(s.topic, mqttQoS, s.handle)
	tok.Wait()
	if err := tok.Error(); err != nil {
		s.logger.Warn("mqtt subscribe failed", "topic", s.topic, "error", err)
		return
	}
	s.setState(StateConnected)
}

func (s *mqttSubscription) handle(_ mqtt.Client, m mqtt.Message) {
	event, data, err := s.codec.Decode(m.Payload())
	if err != nil {
		s.logger.Warn("dropping undecodable frame", "topic", m.Topic(), "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- Message{Channel: s.channel, Event: event, Data: data}:
	case <-s.done:
	}
}

func (s *mqttSubscription) setState(st ConnectionState) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if !closed {
		notify(s.onState, st)
	}
}

func (s *mqttSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)

		if s.client.IsConnectionOpen() {
			s.client.Unsubscribe(s.topic).WaitTimeout(mqttUnsubscribeMs)
		}
		s.client.Disconnect(mqttDisconnectMs)

		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()

		notify(s.onState, StateDisconnected)
	})
	return nil
}
