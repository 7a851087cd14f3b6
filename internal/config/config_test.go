package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadLayersFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  model: gpt-4o
  call_timeout: 3s
ledger:
  backend: redis
api:
  port: 9090
`), 0o600))

	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TRIAGE_API_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 3*time.Second, cfg.LLM.CallTimeout)
	assert.Equal(t, 400, cfg.LLM.MaxTokens)
	assert.Equal(t, "redis", cfg.Ledger.Backend)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 9191, cfg.API.Port)
	assert.Equal(t, "P0", cfg.Policy.AccountCriticalTier)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Escalation, cfg.Escalation)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [not, a, map"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing model", func(c *Config) { c.LLM.Model = "" }, "llm config error"},
		{"missing impact", func(c *Config) { delete(c.Policy.Impacts, "severe") }, `impact "severe" is missing`},
		{"bad tier", func(c *Config) { c.Policy.AccountCriticalTier = "P9" }, "account_critical_tier"},
		{"inverted gold", func(c *Config) {
			minor := c.Policy.Impacts["minor"]
			minor.Gold = 5000
			c.Policy.Impacts["minor"] = minor
		}, "minor gold must not exceed moderate gold"},
		{"specialist below bonus", func(c *Config) { c.Policy.VIPSpecialistLevel = 2 }, "vip_specialist_level"},
		{"specialist above ten", func(c *Config) { c.Policy.VIPSpecialistLevel = 15 }, "between vip_bonus_level and 10"},
		{"mild critical tier", func(c *Config) {
			critical := c.Policy.Impacts["critical"]
			critical.Tier = "P4"
			c.Policy.Impacts["critical"] = critical
		}, "critical impact tier must be P0 or P1"},
		{"inverted tiers", func(c *Config) {
			minimal := c.Policy.Impacts["minimal"]
			minimal.Tier = "P2"
			c.Policy.Impacts["minimal"] = minimal
		}, "minimal tier P2 must not be more severe than minor tier P4"},
		{"zero analysis lease", func(c *Config) { c.Escalation.AnalysisLease = 0 }, "analysis_lease"},
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "postgres" }, "invalid backend"},
		{"kafka without brokers", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}, "brokers are required"},
		{"bad port", func(c *Config) { c.API.Port = 0 }, "port must be between"},
		{"zero health timeout", func(c *Config) { c.Health.CheckTimeout = 0 }, "check_timeout"},
		{"file output without path", func(c *Config) { c.Logging.Output = "file" }, "file path is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
