package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Broker drivers.
const (
	DriverRedis  = "redis"
	DriverMQTT   = "mqtt"
	DriverMemory = "memory"
)

// Wire codecs.
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// Config is the top-level relay configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Broker  BrokerConfig  `yaml:"broker"`
	Voice   VoiceConfig   `yaml:"voice"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BrokerConfig selects and authenticates the pub/sub provider.
//
// AppID, Key and Secret gate the publish side; Key alone gates the subscribe
// side. Key also namespaces the topic so several deployments can share one
// broker.
type BrokerConfig struct {
	Driver   string            `yaml:"driver"`
	URL      string            `yaml:"url"`
	Cluster  string            `yaml:"cluster"`
	Clusters map[string]string `yaml:"clusters"`
	AppID    string            `yaml:"app_id"`
	Key      string            `yaml:"key"`
	Secret   string            `yaml:"secret"`
	Codec    string            `yaml:"codec"`
}

// VoiceConfig holds settings for the external call widget.
type VoiceConfig struct {
	AgentID string `yaml:"agent_id"`
}

// StoreConfig holds delivery log settings.
type StoreConfig struct {
	Capacity int `yaml:"capacity"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PublishConfigured reports whether the publish side has what it needs.
func (b BrokerConfig) PublishConfigured() bool {
	if b.Driver == DriverMemory {
		return true
	}
	return b.AppID != "" && b.Key != "" && b.Secret != ""
}

// SubscribeConfigured reports whether the subscribe side has what it needs.
func (b BrokerConfig) SubscribeConfigured() bool {
	if b.Driver == DriverMemory {
		return true
	}
	return b.Key != ""
}

// Address resolves the broker URL: the cluster's entry in Clusters, else URL.
func (b BrokerConfig) Address() string {
	if addr, ok := b.Clusters[b.Cluster]; ok && addr != "" {
		return addr
	}
	return b.URL
}

// defaults applies sane defaults to zero-valued fields.
func (c *Config) defaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Broker.Driver == "" {
		c.Broker.Driver = DriverRedis
	}
	if c.Broker.URL == "" {
		switch c.Broker.Driver {
		case DriverRedis:
			c.Broker.URL = "redis://localhost:6379/0"
		case DriverMQTT:
			c.Broker.URL = "tcp://localhost:1883"
		}
	}
	if c.Broker.Cluster == "" {
		c.Broker.Cluster = "mt1"
	}
	if c.Broker.Codec == "" {
		c.Broker.Codec = CodecJSON
	}
	if c.Store.Capacity == 0 {
		c.Store.Capacity = 1000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// validate checks required fields and value constraints. Missing broker
// credentials are not an error: they switch the relay into its
// not-configured mode.
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Broker.Driver {
	case DriverRedis, DriverMQTT, DriverMemory:
	default:
		return fmt.Errorf("broker.driver must be one of redis, mqtt, memory, got %q", c.Broker.Driver)
	}
	switch c.Broker.Codec {
	case CodecJSON, CodecMsgpack:
	default:
		return fmt.Errorf("broker.codec must be json or msgpack, got %q", c.Broker.Codec)
	}
	if c.Store.Capacity < 0 {
		return fmt.Errorf("store.capacity must be non-negative")
	}
	return nil
}

// expandEnv replaces ${VAR} references in secret-bearing fields with
// environment variable values. This allows keeping secrets out of YAML.
func (c *Config) expandEnv() {
	c.Broker.URL = os.ExpandEnv(c.Broker.URL)
	c.Broker.AppID = os.ExpandEnv(c.Broker.AppID)
	c.Broker.Key = os.ExpandEnv(c.Broker.Key)
	c.Broker.Secret = os.ExpandEnv(c.Broker.Secret)
	for name, addr := range c.Broker.Clusters {
		c.Broker.Clusters[name] = os.ExpandEnv(addr)
	}
	c.Voice.AgentID = os.ExpandEnv(c.Voice.AgentID)
}

// Load reads a YAML config file, applies defaults, expands env vars, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.defaults()
	cfg.expandEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
