package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ValidFull(t *testing.T) {
	yaml := `
server:
  host: "127.0.0.1"
  port: 9090
broker:
  driver: mqtt
  url: "tcp://localhost:1883"
  cluster: eu
  clusters:
    mt1: "tcp://us.broker.internal:1883"
    eu: "tcp://eu.broker.internal:1883"
  app_id: "1701"
  key: "pk-incident"
  secret: "sk-incident"
  codec: msgpack
voice:
  agent_id: "agent_123"
store:
  capacity: 5000
logging:
  level: debug
  format: text
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Server
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("server.host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want %d", cfg.Server.Port, 9090)
	}

	// Broker
	if cfg.Broker.Driver != DriverMQTT {
		t.Errorf("broker.driver = %q, want %q", cfg.Broker.Driver, DriverMQTT)
	}
	if cfg.Broker.AppID != "1701" || cfg.Broker.Key != "pk-incident" || cfg.Broker.Secret != "sk-incident" {
		t.Errorf("broker credentials = %q/%q/%q", cfg.Broker.AppID, cfg.Broker.Key, cfg.Broker.Secret)
	}
	if cfg.Broker.Codec != CodecMsgpack {
		t.Errorf("broker.codec = %q, want %q", cfg.Broker.Codec, CodecMsgpack)
	}
	if got := cfg.Broker.Address(); got != "tcp://eu.broker.internal:1883" {
		t.Errorf("broker address = %q, want the eu cluster", got)
	}

	// Voice
	if cfg.Voice.AgentID != "agent_123" {
		t.Errorf("voice.agent_id = %q, want %q", cfg.Voice.AgentID, "agent_123")
	}

	// Store
	if cfg.Store.Capacity != 5000 {
		t.Errorf("store.capacity = %d, want %d", cfg.Store.Capacity, 5000)
	}

	// Logging
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("logging.format = %q, want %q", cfg.Logging.Format, "text")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeTemp(t, "{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default server.host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default server.port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Broker.Driver != DriverRedis {
		t.Errorf("default broker.driver = %q, want %q", cfg.Broker.Driver, DriverRedis)
	}
	if cfg.Broker.URL != "redis://localhost:6379/0" {
		t.Errorf("default broker.url = %q, want %q", cfg.Broker.URL, "redis://localhost:6379/0")
	}
	if cfg.Broker.Cluster != "mt1" {
		t.Errorf("default broker.cluster = %q, want %q", cfg.Broker.Cluster, "mt1")
	}
	if cfg.Broker.Codec != CodecJSON {
		t.Errorf("default broker.codec = %q, want %q", cfg.Broker.Codec, CodecJSON)
	}
	if cfg.Store.Capacity != 1000 {
		t.Errorf("default store.capacity = %d, want %d", cfg.Store.Capacity, 1000)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default logging.level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("default logging.format = %q, want %q", cfg.Logging.Format, "json")
	}

	// No credentials is a valid, not-configured relay.
	if cfg.Broker.PublishConfigured() {
		t.Error("publish side should not be configured without credentials")
	}
	if cfg.Broker.SubscribeConfigured() {
		t.Error("subscribe side should not be configured without a key")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeTemp(t, "{{{{not yaml"))
	if err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad port", "server:\n  port: 99999\n"},
		{"unknown driver", "broker:\n  driver: kafka\n"},
		{"unknown codec", "broker:\n  codec: protobuf\n"},
		{"negative capacity", "store:\n  capacity: -5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeTemp(t, tt.yaml)); err == nil {
				t.Fatalf("expected validation error for %s, got nil", tt.name)
			}
		})
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_BROKER_APP_ID", "42")
	t.Setenv("TEST_BROKER_KEY", "pk-live")
	t.Setenv("TEST_BROKER_SECRET", "sk-live")
	t.Setenv("TEST_REDIS_URL", "redis://cache:6379/2")
	t.Setenv("TEST_AGENT_ID", "agent_live")

	yaml := `
broker:
  url: "${TEST_REDIS_URL}"
  app_id: "${TEST_BROKER_APP_ID}"
  key: "${TEST_BROKER_KEY}"
  secret: "${TEST_BROKER_SECRET}"
voice:
  agent_id: "${TEST_AGENT_ID}"
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Broker.URL != "redis://cache:6379/2" {
		t.Errorf("broker.url = %q", cfg.Broker.URL)
	}
	if cfg.Broker.AppID != "42" || cfg.Broker.Key != "pk-live" || cfg.Broker.Secret != "sk-live" {
		t.Errorf("broker credentials = %q/%q/%q", cfg.Broker.AppID, cfg.Broker.Key, cfg.Broker.Secret)
	}
	if cfg.Voice.AgentID != "agent_live" {
		t.Errorf("voice.agent_id = %q", cfg.Voice.AgentID)
	}
	if !cfg.Broker.PublishConfigured() || !cfg.Broker.SubscribeConfigured() {
		t.Error("both sides should be configured")
	}
}

func TestLoad_UnsetEnvVarLeavesGap(t *testing.T) {
	os.Unsetenv("TEST_UNSET_SECRET")
	yaml := `
broker:
  app_id: "42"
  key: "pk-live"
  secret: "${TEST_UNSET_SECRET}"
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Broker.PublishConfigured() {
		t.Error("publish side should not be configured with an empty secret")
	}
	if !cfg.Broker.SubscribeConfigured() {
		t.Error("subscribe side only needs the key")
	}
}

func TestBrokerConfig_Gates(t *testing.T) {
	tests := []struct {
		name     string
		cfg      BrokerConfig
		pub, sub bool
	}{
		{"memory needs nothing", BrokerConfig{Driver: DriverMemory}, true, true},
		{"redis full", BrokerConfig{Driver: DriverRedis, AppID: "1", Key: "k", Secret: "s"}, true, true},
		{"redis key only", BrokerConfig{Driver: DriverRedis, Key: "k"}, false, true},
		{"redis no key", BrokerConfig{Driver: DriverRedis, AppID: "1", Secret: "s"}, false, false},
		{"mqtt empty", BrokerConfig{Driver: DriverMQTT}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.PublishConfigured(); got != tt.pub {
				t.Errorf("PublishConfigured = %v, want %v", got, tt.pub)
			}
			if got := tt.cfg.SubscribeConfigured(); got != tt.sub {
				t.Errorf("SubscribeConfigured = %v, want %v", got, tt.sub)
			}
		})
	}
}

func TestBrokerConfig_AddressFallsBackToURL(t *testing.T) {
	b := BrokerConfig{URL: "redis://localhost:6379", Cluster: "ap1", Clusters: map[string]string{"mt1": "redis://us:6379"}}
	if got := b.Address(); got != "redis://localhost:6379" {
		t.Errorf("Address = %q, want the url fallback", got)
	}
}
