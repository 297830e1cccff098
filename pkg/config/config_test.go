package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
environment: test
kafka:
  brokers:
    - localhost:9092
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Kafka.Topics.Decisions != "trading.decisions" {
		t.Fatalf("decisions topic = %q", cfg.Kafka.Topics.Decisions)
	}
	if cfg.Window.Size != 5*time.Minute {
		t.Fatalf("window size = %v, want 5m", cfg.Window.Size)
	}
	if cfg.Order.ConfidenceThreshold != 0.65 {
		t.Fatalf("threshold = %v, want 0.65", cfg.Order.ConfidenceThreshold)
	}
	if cfg.Order.BaseQuantity != 1.0 || cfg.Order.MaxQuantity != 10.0 {
		t.Fatalf("quantity bounds = %v/%v", cfg.Order.BaseQuantity, cfg.Order.MaxQuantity)
	}
	if cfg.Order.DefaultPrice != 100.0 {
		t.Fatalf("default price = %v", cfg.Order.DefaultPrice)
	}
}

func TestLoadValidatesThreshold(t *testing.T) {
	bad := minimalConfig + `
order:
  confidence_threshold: 1.5
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("expected validation error for threshold 1.5")
	}
}

func TestLoadValidatesQuantityBounds(t *testing.T) {
	bad := minimalConfig + `
order:
  base_quantity: 5.0
  max_quantity: 2.0
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("expected validation error for max < base")
	}
}

func TestLoadRequiresBrokers(t *testing.T) {
	if _, err := Load(writeConfig(t, "environment: test\n")); err == nil {
		t.Fatalf("expected error for empty brokers")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka1:9092,kafka2:9092")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.8")
	t.Setenv("PGHOST", "db.internal")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "kafka1:9092" {
		t.Fatalf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Order.ConfidenceThreshold != 0.8 {
		t.Fatalf("threshold = %v, want 0.8", cfg.Order.ConfidenceThreshold)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Fatalf("pg host = %q", cfg.Postgres.Host)
	}
}

func TestSignalTopics(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	topics := cfg.SignalTopics()
	if topics["1m"] != "trading.signal.1m" || topics["15m"] != "trading.signal.15m" {
		t.Fatalf("unexpected topics %v", topics)
	}
}
