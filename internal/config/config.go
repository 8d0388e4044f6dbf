package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"FeedWatcher/internal/domain"
)

const (
	configPathEnv      = "FEEDWATCHER_CONFIG"
	listenAddrEnv      = "FEEDWATCHER_ADDR"
	storePathEnv       = "FEEDWATCHER_STORE_PATH"
	chatAPIKeyEnv      = "CHAT_API_KEY"
	embeddingAPIKeyEnv = "EMBEDDING_API_KEY"
	githubTokenEnv     = "GITHUB_TOKEN"
)

const defaultSystemPrompt = `You are an expert AI analyst. Analyze the provided content from an API and produce a concise, insightful summary for a business and technical audience. Distill the main problem, user request, or key discussion points. Ignore boilerplate and markdown. Output a single well-written paragraph of no more than 150 words, grounded only in the provided text, and briefly mention why the content is relevant to the matched keyword.`

// Config holds all settings required across the application.
type Config struct {
	Server    ServerConfig           `yaml:"server"`
	Logging   LoggingConfig          `yaml:"logging"`
	Scan      ScanConfig             `yaml:"scan"`
	Chat      ChatConfig             `yaml:"chat"`
	Embedding EmbeddingConfig        `yaml:"embedding"`
	Store     StoreConfig            `yaml:"store"`
	Scheduler SchedulerConfig        `yaml:"scheduler"`
	Webhook   WebhookConfig          `yaml:"webhook"`
	Sources   []domain.SourceConfig  `yaml:"sources"`
	Patterns  []domain.PatternConfig `yaml:"patterns"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ScanConfig sizes the worker pools and scan sessions.
type ScanConfig struct {
	PagesPerScan        int    `yaml:"pagesPerScan"`
	FastWorkers         int    `yaml:"fastWorkers"`
	AIWorkers           int    `yaml:"aiWorkers"`
	QueueSize           int    `yaml:"queueSize"`
	EventBuffer         int    `yaml:"eventBuffer"`
	FetchTimeoutSeconds int    `yaml:"fetchTimeoutSeconds"`
	GitHubToken         string `yaml:"githubToken"`
}

// FetchTimeout resolves the page-fetch deadline.
func (s ScanConfig) FetchTimeout() time.Duration {
	if s.FetchTimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(s.FetchTimeoutSeconds) * time.Second
}

// ChatConfig defines how to contact the summary provider.
type ChatConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"apiKey"`
	SystemPrompt   string `yaml:"systemPrompt"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// Timeout resolves the summary-call deadline.
func (c ChatConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EmbeddingConfig defines the vector provider.
type EmbeddingConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"apiKey"`
	Dimensions     int    `yaml:"dimensions"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// Timeout resolves the embedding-call deadline.
func (e EmbeddingConfig) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// StoreConfig locates the sqlite database. An empty path disables
// persistence; the pipeline then falls back to local analytics events.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig optionally triggers periodic scans of all sources.
type SchedulerConfig struct {
	CronExpression string `yaml:"cronExpression"`
}

// WebhookConfig holds the default outbound notification target.
type WebhookConfig struct {
	SlackURL string `yaml:"slackUrl"`
}

// PathFromEnv returns the config file path, empty when not configured.
// The hot-reload watcher needs the path itself, not just the parsed
// document.
func PathFromEnv() string {
	return os.Getenv(configPathEnv)
}

// Load reads YAML configuration (if present) and applies environment
// overrides on top of built-in defaults.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// Parse decodes a raw YAML document, used by the hot-reload watcher.
func Parse(raw []byte) (Config, error) {
	cfg := defaultConfig()
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, err
	}
	cfg = mergeConfig(cfg, fileCfg)
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(storePathEnv); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv(chatAPIKeyEnv); v != "" {
		c.Chat.APIKey = v
	}
	if v := os.Getenv(embeddingAPIKeyEnv); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv(githubTokenEnv); v != "" {
		c.Scan.GitHubToken = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Scan.PagesPerScan > 0 {
		base.Scan.PagesPerScan = override.Scan.PagesPerScan
	}
	if override.Scan.FastWorkers > 0 {
		base.Scan.FastWorkers = override.Scan.FastWorkers
	}
	if override.Scan.AIWorkers > 0 {
		base.Scan.AIWorkers = override.Scan.AIWorkers
	}
	if override.Scan.QueueSize > 0 {
		base.Scan.QueueSize = override.Scan.QueueSize
	}
	if override.Scan.EventBuffer > 0 {
		base.Scan.EventBuffer = override.Scan.EventBuffer
	}
	if override.Scan.FetchTimeoutSeconds > 0 {
		base.Scan.FetchTimeoutSeconds = override.Scan.FetchTimeoutSeconds
	}
	if override.Scan.GitHubToken != "" {
		base.Scan.GitHubToken = override.Scan.GitHubToken
	}

	if override.Chat.Endpoint != "" {
		base.Chat.Endpoint = override.Chat.Endpoint
	}
	if override.Chat.Model != "" {
		base.Chat.Model = override.Chat.Model
	}
	if override.Chat.APIKey != "" {
		base.Chat.APIKey = override.Chat.APIKey
	}
	if override.Chat.SystemPrompt != "" {
		base.Chat.SystemPrompt = override.Chat.SystemPrompt
	}
	if override.Chat.TimeoutSeconds > 0 {
		base.Chat.TimeoutSeconds = override.Chat.TimeoutSeconds
	}

	if override.Embedding.Endpoint != "" {
		base.Embedding.Endpoint = override.Embedding.Endpoint
	}
	if override.Embedding.Model != "" {
		base.Embedding.Model = override.Embedding.Model
	}
	if override.Embedding.APIKey != "" {
		base.Embedding.APIKey = override.Embedding.APIKey
	}
	if override.Embedding.Dimensions > 0 {
		base.Embedding.Dimensions = override.Embedding.Dimensions
	}
	if override.Embedding.TimeoutSeconds > 0 {
		base.Embedding.TimeoutSeconds = override.Embedding.TimeoutSeconds
	}

	if override.Store.Path != "" {
		base.Store.Path = override.Store.Path
	}
	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Webhook.SlackURL != "" {
		base.Webhook.SlackURL = override.Webhook.SlackURL
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}
	if len(override.Patterns) > 0 {
		base.Patterns = override.Patterns
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Server:  ServerConfig{Addr: "127.0.0.1:5001"},
		Logging: LoggingConfig{Level: "info"},
		Scan: ScanConfig{
			PagesPerScan:        10,
			FastWorkers:         5,
			AIWorkers:           5,
			QueueSize:           256,
			EventBuffer:         256,
			FetchTimeoutSeconds: 20,
		},
		Chat: ChatConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: defaultSystemPrompt,
		},
		Embedding: EmbeddingConfig{
			Endpoint:   "https://api.openai.com/v1/embeddings",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		Store: StoreConfig{Path: "feedwatcher.db"},
		Patterns: []domain.PatternConfig{
			{Label: "MongoDB", Pattern: "(?i)mongodb"},
			{Label: "Vector Search", Pattern: "(?i)vector search"},
			{Label: "VoyageAI", Pattern: "(?i)voyageai"},
		},
	}
}
