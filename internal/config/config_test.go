package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeProfile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ServerVariant(t *testing.T) {
	path := writeProfile(t, "[server]\nurl = \"http://gate.local:8080\"\n")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	v, err := c.Variant()
	if err != nil || v != VariantServer {
		t.Errorf("variant = %q, %v", v, err)
	}
	if c.Server.URL != "http://gate.local:8080" {
		t.Errorf("url = %q", c.Server.URL)
	}
}

func TestLoad_BrokerVariantDefaults(t *testing.T) {
	path := writeProfile(t, `
[broker]
url = "nats://broker.local:4222"
username = "token"
command_digest = "abc123"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	v, err := c.Variant()
	if err != nil || v != VariantBroker {
		t.Fatalf("variant = %q, %v", v, err)
	}
	if got := time.Duration(c.Broker.ReconnectPeriod); got != 2500*time.Millisecond {
		t.Errorf("reconnect period = %v, want 2.5s default", got)
	}
	if got := time.Duration(c.Broker.Keepalive); got != 60*time.Second {
		t.Errorf("keepalive = %v, want 60s default", got)
	}
	if !strings.HasPrefix(c.Broker.ClientID, "gatewatch-") {
		t.Errorf("client id = %q, want generated default", c.Broker.ClientID)
	}
	table := c.Broker.Topics.Table()
	if table.Output != "gate.output.gate" || len(table.Inputs) != 4 {
		t.Errorf("default topic table wrong: %+v", table)
	}
}

func TestLoad_ExplicitTopicsAndDurations(t *testing.T) {
	path := writeProfile(t, `
[broker]
url = "nats://broker.local:4222"
reconnect_period = "5s"
keepalive = "30s"

[broker.topics]
output = "yard.output"
gate_state = "yard.state"
gate_motion = "yard.motion"
status = "yard.status"

[broker.topics.inputs]
bell = "yard.bell"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := time.Duration(c.Broker.ReconnectPeriod); got != 5*time.Second {
		t.Errorf("reconnect period = %v", got)
	}
	if c.Broker.Topics.Output != "yard.output" {
		t.Errorf("configured topics were replaced by defaults: %+v", c.Broker.Topics)
	}
	if c.Broker.Topics.Inputs["bell"] != "yard.bell" {
		t.Errorf("inputs = %+v", c.Broker.Topics.Inputs)
	}
}

func TestVariant_BothConfiguredRejected(t *testing.T) {
	path := writeProfile(t, `
[server]
url = "http://gate.local"

[broker]
url = "nats://broker.local:4222"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := c.Variant(); err == nil {
		t.Error("both sections configured should be an error")
	}
}

func TestVariant_NoneConfiguredRejected(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if _, err := c.Variant(); err == nil {
		t.Error("empty profile should be an error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GATEWATCH_BROKER_URL", "nats://env.local:4222")
	t.Setenv("GATEWATCH_COMMAND_DIGEST", "deadbeef")

	c, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Broker.URL != "nats://env.local:4222" || c.Broker.CommandDigest != "deadbeef" {
		t.Errorf("env overrides not applied: %+v", c.Broker)
	}
}
