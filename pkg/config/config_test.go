package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
pipeline:
  symbols: [AAPL, MSFT]
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Pipeline.GroupSize != 5 || cfg.Pipeline.SymbolDelay != 500*time.Millisecond || cfg.Pipeline.GroupDelay != 2*time.Second {
		t.Fatalf("pacing defaults wrong: %d/%s/%s",
			cfg.Pipeline.GroupSize, cfg.Pipeline.SymbolDelay, cfg.Pipeline.GroupDelay)
	}
	if cfg.Pipeline.WorkerTimeout != 30*time.Second {
		t.Fatalf("worker timeout = %s, want 30s", cfg.Pipeline.WorkerTimeout)
	}
	if cfg.Cache.TTLShort != 5*time.Minute {
		t.Fatalf("ttl_short = %s, want 5m", cfg.Cache.TTLShort)
	}
}

func TestLoadRejectsEmptySymbols(t *testing.T) {
	if _, err := Load(writeConfig(t, "environment: development\n")); err == nil {
		t.Fatalf("expected validation error for empty symbol list")
	}
}

func TestLoadRejectsKafkaWithoutBrokers(t *testing.T) {
	body := minimalConfig + `
kafka:
  enabled: true
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error for kafka enabled without brokers")
	}
}

func TestLoadRejectsFeedWithoutKey(t *testing.T) {
	body := minimalConfig + `
feed:
  enabled: true
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error for feed enabled without api key")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("CLICKHOUSE_HOST", "ch.internal")
	t.Setenv("SYMBOLS", "NVDA,AMD")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ClickHouse.Host != "ch.internal" {
		t.Fatalf("clickhouse host = %s, want env override", cfg.ClickHouse.Host)
	}
	if len(cfg.Pipeline.Symbols) != 2 || cfg.Pipeline.Symbols[0] != "NVDA" {
		t.Fatalf("symbols = %v, want [NVDA AMD]", cfg.Pipeline.Symbols)
	}
}
