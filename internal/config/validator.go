package config

import (
	"fmt"
	"strings"
)

var impactOrder = []string{"critical", "severe", "moderate", "minor", "minimal"}

// Validate performs validation of the configuration
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return fmt.Errorf("llm config error: %w", err)
	}

	if err := c.validatePolicy(); err != nil {
		return fmt.Errorf("policy config error: %w", err)
	}

	if c.Escalation.AnalysisLease <= 0 {
		return fmt.Errorf("escalation config error: analysis_lease must be greater than 0")
	}

	if err := c.validateLedger(); err != nil {
		return fmt.Errorf("ledger config error: %w", err)
	}

	if err := c.validateKafka(); err != nil {
		return fmt.Errorf("kafka config error: %w", err)
	}

	if err := c.validateAPI(); err != nil {
		return fmt.Errorf("api config error: %w", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config error: %w", err)
	}

	if c.Health.CheckTimeout <= 0 {
		return fmt.Errorf("health config error: check_timeout must be greater than 0")
	}

	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.LLM.CallTimeout <= 0 {
		return fmt.Errorf("call_timeout must be greater than 0")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validatePolicy() error {
	p := c.Policy
	for _, impact := range impactOrder {
		reward, ok := p.Impacts[impact]
		if !ok {
			return fmt.Errorf("impact %q is missing", impact)
		}
		if !validTier(reward.Tier) {
			return fmt.Errorf("impact %q has invalid tier %q", impact, reward.Tier)
		}
		if reward.Gold < 0 || reward.Gems < 0 {
			return fmt.Errorf("impact %q has negative rewards", impact)
		}
	}

	if critical := p.Impacts["critical"].Tier; critical != "P0" && critical != "P1" {
		return fmt.Errorf("critical impact tier must be P0 or P1, got %s", critical)
	}

	// Baselines must not grow and tiers must not get more severe as impact decreases.
	// Tier names sort from most (P0) to least (P5) severe.
	for i := 1; i < len(impactOrder); i++ {
		higher, lower := p.Impacts[impactOrder[i-1]], p.Impacts[impactOrder[i]]
		if lower.Gold > higher.Gold {
			return fmt.Errorf("%s gold must not exceed %s gold", impactOrder[i], impactOrder[i-1])
		}
		if lower.Tier < higher.Tier {
			return fmt.Errorf("%s tier %s must not be more severe than %s tier %s",
				impactOrder[i], lower.Tier, impactOrder[i-1], higher.Tier)
		}
	}

	if !validTier(p.AccountCriticalTier) {
		return fmt.Errorf("invalid account_critical_tier %q", p.AccountCriticalTier)
	}
	if p.VIPBonusLevel < 0 || p.VIPBonusLevel > 15 {
		return fmt.Errorf("vip_bonus_level must be between 0 and 15")
	}
	if p.VIPSpecialistLevel < p.VIPBonusLevel || p.VIPSpecialistLevel > 10 {
		return fmt.Errorf("vip_specialist_level must be between vip_bonus_level and 10")
	}
	if p.VIPMultiplier < 1 || p.UrgencyMultiplier < 1 || p.ChurnMultiplier < 1 {
		return fmt.Errorf("multipliers must be at least 1")
	}
	if p.ChurnRiskThreshold < 0 || p.ChurnRiskThreshold > 100 {
		return fmt.Errorf("churn_risk_threshold must be between 0 and 100")
	}
	if p.ConfidenceNudge < 0 || p.ConfidenceNudge > 1 {
		return fmt.Errorf("confidence_nudge must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLedger() error {
	switch strings.ToLower(c.Ledger.Backend) {
	case "memory":
		return nil
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for the redis backend")
		}
		if !strings.Contains(c.Redis.Addr, ":") {
			return fmt.Errorf("invalid redis addr format: %s (expected host:port)", c.Redis.Addr)
		}
		return nil
	default:
		return fmt.Errorf("invalid backend: %s (must be memory or redis)", c.Ledger.Backend)
	}
}

func (c *Config) validateKafka() error {
	if !c.Kafka.Enabled {
		return nil
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("brokers are required when kafka is enabled")
	}

	for _, broker := range c.Kafka.Brokers {
		if !strings.Contains(broker, ":") {
			return fmt.Errorf("invalid broker format: %s (expected host:port)", broker)
		}
	}

	if c.Kafka.RequestsTopic == "" || c.Kafka.CasesTopic == "" || c.Kafka.DeliveryTopic == "" {
		return fmt.Errorf("requests_topic, cases_topic and delivery_topic are required")
	}

	return nil
}

func (c *Config) validateAPI() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if c.API.EnableCORS && len(c.API.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed_origins is required when CORS is enabled")
	}

	return nil
}

func (c *Config) validateLogging() error {
	level := strings.ToLower(c.Logging.Level)
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

	if !validLevels[level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}

	format := strings.ToLower(c.Logging.Format)
	validFormats := map[string]bool{"json": true, "text": true}

	if !validFormats[format] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", format)
	}

	output := strings.ToLower(c.Logging.Output)
	validOutputs := map[string]bool{"stdout": true, "file": true, "both": true}

	if !validOutputs[output] {
		return fmt.Errorf("invalid log output: %s (must be stdout, file, or both)", output)
	}

	if (output == "file" || output == "both") && c.Logging.File == "" {
		return fmt.Errorf("file path is required when output is file or both")
	}

	return nil
}

func validTier(t string) bool {
	switch t {
	case "P0", "P1", "P2", "P3", "P4", "P5":
		return true
	}
	return false
}
