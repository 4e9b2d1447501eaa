package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all rekindle configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Reasoning ReasoningConfig `mapstructure:"reasoning"`
}

type ServerConfig struct {
	Bind string `mapstructure:"bind"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type EngineConfig struct {
	BatchIntervalHours int    `mapstructure:"batch_interval_hours"`
	HorizonDays        int    `mapstructure:"horizon_days"`
	MaxPerBatch        int    `mapstructure:"max_per_batch"`
	CloseFriendsGroup  string `mapstructure:"close_friends_group"`
	BatchConcurrency   int    `mapstructure:"batch_concurrency"`
}

type ReasoningConfig struct {
	Provider       string `mapstructure:"provider"` // "anthropic", "ollama", "none"
	Model          string `mapstructure:"model"`
	AnthropicKey   string `mapstructure:"anthropic_key"`
	OllamaURL      string `mapstructure:"ollama_url"`
	OllamaModel    string `mapstructure:"ollama_model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38080,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Engine: EngineConfig{
			BatchIntervalHours: 6,
			HorizonDays:        14,
			MaxPerBatch:        10,
			CloseFriendsGroup:  "close friends",
			BatchConcurrency:   4,
		},
		Reasoning: ReasoningConfig{
			Provider:       "none",
			TimeoutSeconds: 10,
		},
	}
}

// Load reads rekindle.yaml from ~/.rekindle or the working directory,
// layered over Default(), with REKINDLE_* environment overrides
// (e.g. REKINDLE_REASONING_PROVIDER=anthropic). A missing config file
// is fine; defaults apply.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("rekindle")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.rekindle")
	v.AddConfigPath(".")

	def := Default()
	v.SetDefault("server.bind", def.Server.Bind)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("engine.batch_interval_hours", def.Engine.BatchIntervalHours)
	v.SetDefault("engine.horizon_days", def.Engine.HorizonDays)
	v.SetDefault("engine.max_per_batch", def.Engine.MaxPerBatch)
	v.SetDefault("engine.close_friends_group", def.Engine.CloseFriendsGroup)
	v.SetDefault("engine.batch_concurrency", def.Engine.BatchConcurrency)
	v.SetDefault("reasoning.provider", def.Reasoning.Provider)
	v.SetDefault("reasoning.model", def.Reasoning.Model)
	v.SetDefault("reasoning.anthropic_key", def.Reasoning.AnthropicKey)
	v.SetDefault("reasoning.ollama_url", def.Reasoning.OllamaURL)
	v.SetDefault("reasoning.ollama_model", def.Reasoning.OllamaModel)
	v.SetDefault("reasoning.timeout_seconds", def.Reasoning.TimeoutSeconds)

	v.SetEnvPrefix("REKINDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// BatchInterval returns the scheduler cadence as a duration.
func (c *Config) BatchInterval() time.Duration {
	hours := c.Engine.BatchIntervalHours
	if hours <= 0 {
		hours = 6
	}
	return time.Duration(hours) * time.Hour
}

// Horizon returns the slot-search horizon as a duration.
func (c *Config) Horizon() time.Duration {
	days := c.Engine.HorizonDays
	if days <= 0 {
		days = 14
	}
	return time.Duration(days) * 24 * time.Hour
}

// ReasoningTimeout returns the bound on reasoning-service calls.
func (c *Config) ReasoningTimeout() time.Duration {
	s := c.Reasoning.TimeoutSeconds
	if s <= 0 {
		s = 10
	}
	return time.Duration(s) * time.Second
}
