package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
service_name: trigger-engine
oms_db:
  data_source: ${TEST_DB_DSN}
  max_open_conns: 10
redis:
  connection_url: redis://localhost:6379/0
kafka:
  producer:
    brokers: ["localhost:9092"]
    batch_timeout: 20ms
  consumer:
    brokers: ["localhost:9092"]
    group_id: trigger-recorder
    topic: order.triggers
    max_retries: 3
nats:
  url: nats://localhost:4222
  durable: engine
book:
  reject_stale_quotes: true
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_DB_DSN", "postgres://u:p@db:5432/oms")
	path := writeFile(t, "config.yaml", sample)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServiceName != "trigger-engine" {
		t.Errorf("unexpected service name %q", cfg.ServiceName)
	}
	if cfg.OmsDB.DataSource != "postgres://u:p@db:5432/oms" || cfg.OmsDB.MaxOpenConns != 10 {
		t.Errorf("env not expanded: %+v", cfg.OmsDB)
	}
	if cfg.Kafka.Producer.BatchTimeout != 20*time.Millisecond || cfg.Kafka.Consumer.MaxRetries != 3 {
		t.Errorf("unexpected kafka config %+v", cfg.Kafka)
	}
	if cfg.Nats.Durable != "engine" || !cfg.Book.RejectStaleQuotes {
		t.Errorf("unexpected nats/book config %+v %+v", cfg.Nats, cfg.Book)
	}
	if cfg.HTTPAddr != ":8080" || cfg.LogLevel != "info" {
		t.Errorf("defaults not applied: %q %q", cfg.HTTPAddr, cfg.LogLevel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", "service_name: from-env\n")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServiceName != "from-env" || cfg.Book == nil {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
	if _, err := Load(writeFile(t, "bad.yaml", "oms_db: [")); err == nil {
		t.Errorf("expected parse error")
	}
}

func TestLoadEnv(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing env file should be ignored, got %v", err)
	}

	t.Setenv("JIJI2_PRESET", "kept")
	os.Unsetenv("JIJI2_FROM_FILE")
	t.Cleanup(func() { os.Unsetenv("JIJI2_FROM_FILE") })

	path := writeFile(t, ".env", "JIJI2_FROM_FILE=loaded\nJIJI2_PRESET=overridden\n")
	if err := LoadEnv(path); err != nil {
		t.Fatal(err)
	}
	if os.Getenv("JIJI2_FROM_FILE") != "loaded" {
		t.Errorf("expected value from file, got %q", os.Getenv("JIJI2_FROM_FILE"))
	}
	if os.Getenv("JIJI2_PRESET") != "kept" {
		t.Errorf("existing variable overwritten: %q", os.Getenv("JIJI2_PRESET"))
	}
}
