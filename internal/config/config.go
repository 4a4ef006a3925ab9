package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type QueueConfig struct {
	Group          string        `yaml:"group"`            // consumer group name, one constant for all workers
	Tick           time.Duration `yaml:"tick"`             // discovery interval
	ClaimBlock     time.Duration `yaml:"claim_block"`      // claimNext block timeout
	ReclaimMinIdle time.Duration `yaml:"reclaim_min_idle"` // pending age before reclaim; must exceed the longest executor step or a live worker's entry gets stolen
	MaxDeliveries  int64         `yaml:"max_deliveries"`   // poison threshold
	StreamMaxLen   int64         `yaml:"stream_max_len"`   // per-conversation log trim bound
	ChunkTTL       time.Duration `yaml:"chunk_ttl"`        // chunk + completion retention
	PoolWorkers    int           `yaml:"pool_workers"`     // max concurrent conversation runners
}

type HistoryConfig struct {
	LimitPrivate int `yaml:"limit_private"`
	LimitGroup   int `yaml:"limit_group"`
	TokenBudget  int `yaml:"token_budget"` // prompt history budget, 0 disables trimming
}

type AgentConfig struct {
	Provider        string `yaml:"provider"` // openai | gemini | noop
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	Model           string `yaml:"model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

type WhatsAppConfig struct {
	BridgeURL string        `yaml:"bridge_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

type KnowledgeBaseConfig struct {
	ServiceURL string        `yaml:"service_url"` // document ingestion service, empty disables documents
	Timeout    time.Duration `yaml:"timeout"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type Config struct {
	Log      LogConfig           `yaml:"log"`
	Redis    RedisConfig         `yaml:"redis"`
	Database DatabaseConfig      `yaml:"database"`
	Queue    QueueConfig         `yaml:"queue"`
	History  HistoryConfig       `yaml:"history"`
	Agent    AgentConfig         `yaml:"agent"`
	WhatsApp WhatsAppConfig      `yaml:"whatsapp"`
	KB       KnowledgeBaseConfig `yaml:"knowledge_base"`
	Web      WebConfig           `yaml:"web"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Queue.Group == "" {
		cfg.Queue.Group = "workers"
	}
	if cfg.Queue.Tick <= 0 {
		cfg.Queue.Tick = time.Second
	}
	if cfg.Queue.ClaimBlock <= 0 {
		cfg.Queue.ClaimBlock = 5 * time.Second
	}
	if cfg.Queue.ReclaimMinIdle <= 0 {
		cfg.Queue.ReclaimMinIdle = 5 * time.Minute
	}
	if cfg.Queue.MaxDeliveries <= 0 {
		cfg.Queue.MaxDeliveries = 5
	}
	if cfg.Queue.StreamMaxLen <= 0 {
		cfg.Queue.StreamMaxLen = 1000
	}
	if cfg.Queue.ChunkTTL <= 0 {
		cfg.Queue.ChunkTTL = time.Hour
	}
	if cfg.Queue.PoolWorkers <= 0 {
		cfg.Queue.PoolWorkers = 32
	}
	if cfg.History.LimitPrivate <= 0 {
		cfg.History.LimitPrivate = 20
	}
	if cfg.History.LimitGroup <= 0 {
		cfg.History.LimitGroup = 30
	}
	if cfg.Agent.Provider == "" {
		cfg.Agent.Provider = "openai"
	}
	if cfg.Agent.MaxOutputTokens <= 0 {
		cfg.Agent.MaxOutputTokens = 2048
	}
	if cfg.WhatsApp.Timeout <= 0 {
		cfg.WhatsApp.Timeout = 10 * time.Second
	}
	if cfg.KB.Timeout <= 0 {
		cfg.KB.Timeout = 2 * time.Minute
	}
	// A pending entry counts as abandoned only once no live worker can
	// still be executing it. Document ingestion is the longest executor
	// step, so the reclaim threshold is clamped above it; a lower value
	// would let a second worker steal and re-run an in-flight job.
	if cfg.Queue.ReclaimMinIdle <= cfg.KB.Timeout {
		cfg.Queue.ReclaimMinIdle = cfg.KB.Timeout + time.Minute
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8000
	}
}
