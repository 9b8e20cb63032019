// Package config loads the gatewatch profile: which transport variant to
// run and how to reach it. Settings come from a TOML file with env-var
// overrides. Exactly one of the [server] and [broker] sections selects
// the deployment variant; configuring both is an error, not a fallback.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/greymark/gatewatch/internal/telemetry"
)

// Broker client IDs default to "gatewatch-" plus a short nanoid, so two
// consoles on the same broker never collide on connection name.
const (
	clientIDPrefix   = "gatewatch-"
	clientIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	clientIDLength   = 10
)

// Variant names the active deployment variant.
type Variant string

const (
	// VariantServer uses the session + event-stream control server.
	VariantServer Variant = "server"
	// VariantBroker connects straight to the pub/sub broker.
	VariantBroker Variant = "broker"
)

// Duration is a time.Duration that decodes from TOML strings like "2.5s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config is the full gatewatch profile.
type Config struct {
	Server ServerConfig `toml:"server"`
	Broker BrokerConfig `toml:"broker"`
}

// ServerConfig configures the server-backed variant.
type ServerConfig struct {
	URL string `toml:"url"`
}

// BrokerConfig configures the broker-backed variant.
type BrokerConfig struct {
	URL             string       `toml:"url"`
	Username        string       `toml:"username"`
	Password        string       `toml:"password"`
	ClientID        string       `toml:"client_id"`
	Keepalive       Duration     `toml:"keepalive"`
	ReconnectPeriod Duration     `toml:"reconnect_period"`
	CommandDigest   string       `toml:"command_digest"`
	Topics          TopicsConfig `toml:"topics"`
}

// TopicsConfig is the broker topic table.
type TopicsConfig struct {
	Output     string            `toml:"output"`
	GateState  string            `toml:"gate_state"`
	GateMotion string            `toml:"gate_motion"`
	Status     string            `toml:"status"`
	Inputs     map[string]string `toml:"inputs"`
}

// Table converts the configured topics to a resolver table.
func (t *TopicsConfig) Table() *telemetry.TopicTable {
	inputs := make(map[telemetry.InputKey]string, len(t.Inputs))
	for key, topic := range t.Inputs {
		inputs[telemetry.InputKey(key)] = topic
	}
	return &telemetry.TopicTable{
		Output:     t.Output,
		GateState:  t.GateState,
		GateMotion: t.GateMotion,
		Status:     t.Status,
		Inputs:     inputs,
	}
}

// DefaultTopics returns the stock topic layout for a controller publishing
// under the "gate" subject root.
func DefaultTopics() TopicsConfig {
	return TopicsConfig{
		Output:     "gate.output.gate",
		GateState:  "gate.status.gate_state",
		GateMotion: "gate.status.gate_motion",
		Status:     "gate.status",
		Inputs: map[string]string{
			"bell":  "gate.input.bell",
			"lock":  "gate.input.lock",
			"state": "gate.input.state",
			"car":   "gate.input.car",
		},
	}
}

// DefaultPath returns the profile location: $GATEWATCH_CONFIG or
// ~/.config/gatewatch/config.toml.
func DefaultPath() (string, error) {
	if p := os.Getenv("GATEWATCH_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gatewatch", "config.toml"), nil
}

// StateDir returns where credentials are persisted: $GATEWATCH_STATE_DIR
// or ~/.local/state/gatewatch.
func StateDir() (string, error) {
	if p := os.Getenv("GATEWATCH_STATE_DIR"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "gatewatch"), nil
}

// Load reads the profile at path, applies env overrides and defaults. A
// missing file is fine when env vars select a variant.
func Load(path string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	if v := os.Getenv("GATEWATCH_SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("GATEWATCH_BROKER_URL"); v != "" {
		c.Broker.URL = v
	}
	if v := os.Getenv("GATEWATCH_BROKER_USERNAME"); v != "" {
		c.Broker.Username = v
	}
	if v := os.Getenv("GATEWATCH_BROKER_PASSWORD"); v != "" {
		c.Broker.Password = v
	}
	if v := os.Getenv("GATEWATCH_COMMAND_DIGEST"); v != "" {
		c.Broker.CommandDigest = v
	}

	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Broker.URL == "" {
		return
	}
	if c.Broker.Keepalive == 0 {
		c.Broker.Keepalive = Duration(60 * time.Second)
	}
	if c.Broker.ReconnectPeriod == 0 {
		c.Broker.ReconnectPeriod = Duration(2500 * time.Millisecond)
	}
	if c.Broker.ClientID == "" {
		if id, err := nanoid.Generate(clientIDAlphabet, clientIDLength); err == nil {
			c.Broker.ClientID = clientIDPrefix + id
		}
	}
	if c.Broker.Topics.Output == "" && c.Broker.Topics.GateState == "" &&
		c.Broker.Topics.Status == "" && len(c.Broker.Topics.Inputs) == 0 {
		c.Broker.Topics = DefaultTopics()
	}
}

// Variant reports which deployment variant the profile selects.
func (c *Config) Variant() (Variant, error) {
	switch {
	case c.Server.URL != "" && c.Broker.URL != "":
		return "", fmt.Errorf("both [server] and [broker] are configured; pick one")
	case c.Server.URL != "":
		return VariantServer, nil
	case c.Broker.URL != "":
		return VariantBroker, nil
	}
	return "", fmt.Errorf("no transport configured: set [server].url or [broker].url (or GATEWATCH_SERVER_URL / GATEWATCH_BROKER_URL)")
}
