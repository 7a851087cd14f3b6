package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Policy     PolicyConfig     `yaml:"policy"`
	Escalation EscalationConfig `yaml:"escalation"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	API        APIConfig        `yaml:"api"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Health     HealthConfig     `yaml:"health"`
}

// LLMConfig represents the text generation service configuration
type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	CallTimeout time.Duration `yaml:"call_timeout"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
}

// RewardConfig is the reward baseline for one impact level
type RewardConfig struct {
	Tier      string         `yaml:"tier"`
	Gold      int            `yaml:"gold"`
	Gems      int            `yaml:"gems"`
	Resources map[string]int `yaml:"resources"`
	Items     map[string]int `yaml:"items"`
}

// PolicyConfig holds the product policy constants of the compensation recommender.
// None of these values are engineering contracts.
type PolicyConfig struct {
	Impacts             map[string]RewardConfig `yaml:"impacts"`
	AccountCriticalTier string                  `yaml:"account_critical_tier"`
	VIPBonusLevel       int                     `yaml:"vip_bonus_level"`
	VIPSpecialistLevel  int                     `yaml:"vip_specialist_level"`
	VIPMultiplier       float64                 `yaml:"vip_multiplier"`
	UrgencyMultiplier   float64                 `yaml:"urgency_multiplier"`
	ChurnRiskThreshold  int                     `yaml:"churn_risk_threshold"`
	ChurnMultiplier     float64                 `yaml:"churn_multiplier"`
	FrustrationGemStep  int                     `yaml:"frustration_gem_step"`
	ConfidenceNudge     float64                 `yaml:"confidence_nudge"`
	SpecialistReview    string                  `yaml:"specialist_review_time"`
}

// EscalationConfig represents the routing configuration of the approval state machine
type EscalationConfig struct {
	AutoResolvableCategories []string `yaml:"auto_resolvable_categories"`
	OverrideTones            []string `yaml:"override_tones"`
	RejectionMessage         string   `yaml:"rejection_message"`
	NoIssueMessage           string   `yaml:"no_issue_message"`
	// AnalysisLease is how long a case may sit in analyzing before a new
	// submission may claim it again
	AnalysisLease time.Duration `yaml:"analysis_lease"`
}

// LedgerConfig selects the request ledger backend
type LedgerConfig struct {
	Backend   string `yaml:"backend"` // memory, redis
	KeyPrefix string `yaml:"key_prefix"`
}

// RedisConfig represents Redis connection configuration
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

// KafkaConfig represents Kafka producer configuration
type KafkaConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Brokers         []string      `yaml:"brokers"`
	RequestsTopic   string        `yaml:"requests_topic"`
	CasesTopic      string        `yaml:"cases_topic"`
	DeliveryTopic   string        `yaml:"delivery_topic"`
	Timeout         time.Duration `yaml:"timeout"`
	BatchTimeout    time.Duration `yaml:"batch_timeout"`
	CompressionGzip bool          `yaml:"compression_gzip"`
}

// APIConfig represents API gateway configuration
type APIConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	EnableCORS     bool          `yaml:"enable_cors"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxRequestSize int64         `yaml:"max_request_size"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// HealthConfig bounds dependency checks behind the health endpoint
type HealthConfig struct {
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// TracingConfig represents tracing configuration
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	Environment string  `yaml:"environment"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			CallTimeout: 8 * time.Second,
			CacheTTL:    10 * time.Minute,
			Temperature: 0.2,
			MaxTokens:   400,
		},
		Policy: PolicyConfig{
			Impacts: map[string]RewardConfig{
				"critical": {Tier: "P1", Gold: 1000, Gems: 100, Resources: map[string]int{"energy": 50}},
				"severe":   {Tier: "P2", Gold: 500, Gems: 50},
				"moderate": {Tier: "P3", Gold: 250, Gems: 20},
				"minor":    {Tier: "P4", Gold: 150, Gems: 10},
				"minimal":  {Tier: "P4", Gold: 100},
			},
			AccountCriticalTier: "P0",
			VIPBonusLevel:       5,
			VIPSpecialistLevel:  10,
			VIPMultiplier:       2.0,
			UrgencyMultiplier:   1.5,
			ChurnRiskThreshold:  70,
			ChurnMultiplier:     1.2,
			FrustrationGemStep:  5,
			ConfidenceNudge:     0.1,
			SpecialistReview:    "1-2h",
		},
		Escalation: EscalationConfig{
			AutoResolvableCategories: []string{"technical", "gameplay"},
			OverrideTones:            []string{"angry", "frustrated", "agitated"},
			RejectionMessage: "Thank you for reaching out. After reviewing your account we are unable to offer " +
				"compensation for this report. A member of our support team is available if you have more details to share.",
			NoIssueMessage: "Thanks for contacting us! We could not identify an issue that needs compensation. " +
				"If something is still not working, reply with a few more details and we will take a look.",
			AnalysisLease: 5 * time.Minute,
		},
		Ledger: LedgerConfig{
			Backend:   "memory",
			KeyPrefix: "guildcare:ledger",
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     50,
		},
		Kafka: KafkaConfig{
			Brokers:         []string{"localhost:9092"},
			RequestsTopic:   "compensation.requests",
			CasesTopic:      "escalation.cases",
			DeliveryTopic:   "player.delivery",
			Timeout:         10 * time.Second,
			BatchTimeout:    10 * time.Millisecond,
			CompressionGzip: true,
		},
		API: APIConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    120 * time.Second,
			RequestTimeout: 45 * time.Second,
			EnableCORS:     true,
			AllowedOrigins: []string{"*"},
			MaxRequestSize: 1 << 20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     30,
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			ServiceName: "guildcare-triage",
			Environment: "development",
			SampleRate:  1.0,
		},
		Health: HealthConfig{
			CheckTimeout: 2 * time.Second,
		},
	}
}

// Load loads configuration from a YAML file layered over the defaults.
// A missing file is not an error; environment variables win over both.
func Load(path string) (*Config, error) {
	// .env is optional, real environment variables are never overwritten
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("LEDGER_BACKEND"); v != "" {
		c.Ledger.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TRIAGE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.API.Port = port
		}
	}
}
