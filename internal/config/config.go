package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Environment names
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Chat persistence backends
const (
	BackendDatabase = "database"
	BackendSession  = "session"
)

// Session store kinds
const (
	SessionStoreSQLite = "sqlite"
	SessionStoreBolt   = "bolt"
)

// LLM providers
const (
	ProviderTogether = "together"
	ProviderGroq     = "groq"
	ProviderOpenAI   = "openai"
)

var providerDefaults = map[string]struct {
	baseURL string
	model   string
}{
	ProviderTogether: {baseURL: "https://api.together.xyz/v1", model: "meta-llama/Llama-3-8b-chat-hf"},
	ProviderGroq:     {baseURL: "https://api.groq.com/openai/v1", model: "llama-3.1-8b-instant"},
	ProviderOpenAI:   {baseURL: "https://api.openai.com/v1", model: "gpt-4o-mini"},
}

// DefaultSystemPrompt is the persona sent ahead of every conversation window
const DefaultSystemPrompt = "You are Echo, a fun and friendly chat companion. " +
	"Keep your replies short, warm and conversational, and ask a follow-up question when it fits."

// Config holds the full application configuration
type Config struct {
	Environment    string         `yaml:"environment" env:"ENVIRONMENT"`
	ListenAddr     string         `yaml:"listen_addr" env:"LISTEN_ADDR"`
	AllowedOrigins []string       `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	Database       DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Session        SessionConfig  `yaml:"session" envPrefix:"SESSION_"`
	Chat           ChatConfig     `yaml:"chat" envPrefix:"CHAT_"`
	LLM            LLMConfig      `yaml:"llm" envPrefix:"LLM_"`
	Log            LogConfig      `yaml:"log" envPrefix:"LOG_"`
}

// DatabaseConfig configures the sqlite database
type DatabaseConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// SessionConfig configures the server-side session layer
type SessionConfig struct {
	Store           string        `yaml:"store" env:"STORE"`
	BoltPath        string        `yaml:"bolt_path" env:"BOLT_PATH"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CLEANUP_INTERVAL"`
}

// ChatConfig configures chat persistence and the conversation window.
// Zero Window, HistoryLimit and MaxTokens values are filled per backend by Validate.
type ChatConfig struct {
	Backend      string `yaml:"backend" env:"BACKEND"`
	Window       int    `yaml:"window" env:"WINDOW"`
	HistoryLimit int    `yaml:"history_limit" env:"HISTORY_LIMIT"`
	SystemPrompt string `yaml:"system_prompt" env:"SYSTEM_PROMPT"`
}

// LLMConfig configures the chat-completion provider
type LLMConfig struct {
	Provider    string        `yaml:"provider" env:"PROVIDER"`
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	Model       string        `yaml:"model" env:"MODEL"`
	Temperature float64       `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens   int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// LogConfig configures the application logger
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Environment:    EnvProduction,
		ListenAddr:     ":8080",
		AllowedOrigins: []string{"http://localhost:3000"},
		Database: DatabaseConfig{
			Path: "./echochat.db",
		},
		Session: SessionConfig{
			Store:           SessionStoreSQLite,
			BoltPath:        "./sessions.bolt",
			IdleTimeout:     30 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		Chat: ChatConfig{
			Backend:      BackendDatabase,
			SystemPrompt: DefaultSystemPrompt,
		},
		LLM: LLMConfig{
			Provider:    ProviderTogether,
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the environment and an optional
// YAML file. Values from the file take precedence over the environment.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "ECHOCHAT_"}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKeyFromEnv(cfg.LLM.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// providerKeyFromEnv looks up the conventional API key variable for a provider
func providerKeyFromEnv(provider string) string {
	switch provider {
	case ProviderGroq:
		return os.Getenv("GROQ_API_KEY")
	case ProviderTogether:
		return os.Getenv("TOGETHER_API_KEY")
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

// IsDevelopment reports whether the app runs in the development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// Validate checks the configuration and fills backend-dependent defaults
func (c *Config) Validate() error {
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	if c.Environment == "" {
		c.Environment = EnvProduction
	}

	switch c.Session.Store {
	case SessionStoreSQLite:
	case SessionStoreBolt:
		if c.Session.BoltPath == "" {
			return errors.New("session.bolt_path is required for the bolt session store")
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	if c.Session.IdleTimeout <= 0 {
		return errors.New("session.idle_timeout must be positive")
	}
	if c.Session.CleanupInterval <= 0 {
		return errors.New("session.cleanup_interval must be positive")
	}

	switch c.Chat.Backend {
	case BackendDatabase:
		if c.Chat.Window <= 0 {
			c.Chat.Window = 10
		}
		if c.LLM.MaxTokens <= 0 {
			c.LLM.MaxTokens = 500
		}
	case BackendSession:
		if c.Chat.Window <= 0 {
			c.Chat.Window = 6
		}
		if c.LLM.MaxTokens <= 0 {
			c.LLM.MaxTokens = 200
		}
	default:
		return fmt.Errorf("unknown chat backend %q", c.Chat.Backend)
	}
	if c.Chat.HistoryLimit <= 0 {
		c.Chat.HistoryLimit = c.Chat.Window
	}
	if c.Chat.HistoryLimit < c.Chat.Window {
		return errors.New("chat.history_limit must not be smaller than chat.window")
	}
	if strings.TrimSpace(c.Chat.SystemPrompt) == "" {
		c.Chat.SystemPrompt = DefaultSystemPrompt
	}

	defaults, ok := providerDefaults[c.LLM.Provider]
	if !ok {
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaults.baseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaults.model
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("no API key configured for provider %q: set llm.api_key or the provider key variable", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("llm.timeout must be positive")
	}

	return nil
}
