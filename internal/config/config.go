// Package config provides configuration management for the Perplexity Proxy API server.
// It handles loading and parsing YAML configuration files, and provides structured
// access to application settings including server port, API keys, conversation
// continuity limits, and the upstream Perplexity endpoint parameters.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port"`

	// Debug enables or disables debug-level logging and other debug features.
	Debug bool `yaml:"debug"`

	// LoggingToFile switches the global log output to rotating files under logs/.
	LoggingToFile bool `yaml:"logging-to-file"`

	// RequestLog enables or disables detailed request logging functionality.
	RequestLog bool `yaml:"request-log"`

	// APIKeys is a list of keys for authenticating clients to this proxy server.
	APIKeys []string `yaml:"api-keys"`

	// UsageStatisticsPath is the bolt database file used for usage counters.
	UsageStatisticsPath string `yaml:"usage-statistics-path"`

	// Conversation controls thread continuity limits.
	Conversation ConversationConfig `yaml:"conversation"`

	// Perplexity configures the upstream Perplexity endpoint.
	Perplexity PerplexityConfig `yaml:"perplexity"`
}

// ConversationConfig controls conversation continuity behavior.
type ConversationConfig struct {
	// MaxTurns is the number of turns a thread serves before it is rotated.
	MaxTurns int `yaml:"max-turns"`

	// MaxSessions bounds the number of concurrently tracked conversations.
	MaxSessions int `yaml:"max-sessions"`
}

// PerplexityConfig configures the upstream Perplexity web endpoint.
type PerplexityConfig struct {
	// APIURL is the Perplexity SSE ask endpoint.
	APIURL string `yaml:"api-url"`

	// Cookie is the raw cookie header value of an authenticated browser session.
	// Acquiring and refreshing it is outside this server's responsibility.
	Cookie string `yaml:"cookie"`

	// UserAgent is sent with every upstream request; it should match the
	// browser session the cookie was captured from.
	UserAgent string `yaml:"user-agent"`

	// Models lists the model preferences exposed through /v1/models.
	Models []string `yaml:"models"`

	// DefaultModel is used when a request does not name a model.
	DefaultModel string `yaml:"default-model"`
}

const (
	defaultPort        = 8092
	defaultAPIURL      = "https://www.perplexity.ai/rest/sse/perplexity_ask"
	defaultMaxTurns    = 50
	defaultMaxSessions = 10
	defaultUsagePath   = "usage.bolt"
)

var defaultModels = []string{
	"gemini30pro",
	"gpt-4o",
	"claude-3-opus",
	"sonar-reasoning-pro",
	"sonar-pro",
}

// LoadConfig reads a YAML configuration file from the given path,
// unmarshals it into a Config struct, applies defaults for unset fields,
// and returns it.
func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// SaveConfig writes the configuration back to the given path in YAML form.
func SaveConfig(configFile string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = os.WriteFile(configFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyDefaults fills in zero-valued fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Port <= 0 {
		c.Port = defaultPort
	}
	if c.UsageStatisticsPath == "" {
		c.UsageStatisticsPath = defaultUsagePath
	}
	if c.Conversation.MaxTurns <= 0 {
		c.Conversation.MaxTurns = defaultMaxTurns
	}
	if c.Conversation.MaxSessions <= 0 {
		c.Conversation.MaxSessions = defaultMaxSessions
	}
	if c.Perplexity.APIURL == "" {
		c.Perplexity.APIURL = defaultAPIURL
	}
	if len(c.Perplexity.Models) == 0 {
		c.Perplexity.Models = append([]string(nil), defaultModels...)
	}
	if c.Perplexity.DefaultModel == "" {
		c.Perplexity.DefaultModel = c.Perplexity.Models[0]
	}
}
