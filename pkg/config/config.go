// Package config provides configuration loading, validation, and defaults
// for the oracle pipeline server and client.
// It handles YAML config files with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider name constants.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderMock      = "mock"
)

// Default model per provider.
const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-5-sonnet-latest"
	DefaultOllamaModel    = "llama3.1:8b"
	DefaultOllamaHost     = "http://localhost:11434"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ProviderConfig selects and configures the LLM backend used by stage
// executions.
type ProviderConfig struct {
	Name    string `yaml:"name"`     // "openai", "anthropic", "ollama", "mock"
	Model   string `yaml:"model"`    // Provider-specific model identifier
	APIKey  string `yaml:"api_key"`  // Supports ${ENV_VAR} substitution
	BaseURL string `yaml:"base_url"` // Optional API base override
	Host    string `yaml:"host"`     // Ollama server URL
}

// PipelineConfig tunes stage execution behavior.
type PipelineConfig struct {
	StallTimeoutSec int     `yaml:"stall_timeout_sec"` // Max silence per stage before it is failed
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float32 `yaml:"temperature"`
}

// EventLogConfig controls the per-run diagnostic event log.
type EventLogConfig struct {
	Dir           string `yaml:"dir"`
	RotationHours int    `yaml:"rotation_hours"`
	Disabled      bool   `yaml:"disabled"`
}

// Config is the root configuration for the oracle server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	EventLog EventLogConfig `yaml:"eventlog"`
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadConfig loads and validates configuration from a YAML file with
// environment variable substitution. An empty path yields defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := defaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Replace ${VAR} placeholders before parsing.
		dataStr := envVarRegex.ReplaceAllStringFunc(string(data), func(match string) string {
			envVar := match[2 : len(match)-1]
			if value := os.Getenv(envVar); value != "" {
				return value
			}
			return match
		})

		if err := yaml.Unmarshal([]byte(dataStr), config); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	applyEnvOverrides(config)
	applyDefaults(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Provider: ProviderConfig{
			Name: ProviderOpenAI,
		},
		Pipeline: PipelineConfig{
			StallTimeoutSec: 120,
			MaxTokens:       4096,
			Temperature:     0.3,
		},
		EventLog: EventLogConfig{
			Dir:           "logs",
			RotationHours: 24,
		},
	}
}

// applyEnvOverrides applies ORACLE_* and provider API key environment
// variables on top of the file configuration.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("ORACLE_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("ORACLE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("ORACLE_PROVIDER"); v != "" {
		config.Provider.Name = v
	}
	if v := os.Getenv("ORACLE_MODEL"); v != "" {
		config.Provider.Model = v
	}

	// Provider-conventional key variables fill an unset api_key.
	if config.Provider.APIKey == "" || envVarRegex.MatchString(config.Provider.APIKey) {
		switch config.Provider.Name {
		case ProviderOpenAI:
			config.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
		case ProviderAnthropic:
			config.Provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
}

func applyDefaults(config *Config) {
	if config.Provider.Model == "" {
		switch config.Provider.Name {
		case ProviderAnthropic:
			config.Provider.Model = DefaultAnthropicModel
		case ProviderOllama:
			config.Provider.Model = DefaultOllamaModel
		default:
			config.Provider.Model = DefaultOpenAIModel
		}
	}
	if config.Provider.Name == ProviderOllama && config.Provider.Host == "" {
		config.Provider.Host = DefaultOllamaHost
	}
	if config.Pipeline.StallTimeoutSec <= 0 {
		config.Pipeline.StallTimeoutSec = 120
	}
	if config.Pipeline.MaxTokens <= 0 {
		config.Pipeline.MaxTokens = 4096
	}
	if config.Pipeline.Temperature <= 0 {
		config.Pipeline.Temperature = 0.3
	}
	if config.EventLog.Dir == "" {
		config.EventLog.Dir = "logs"
	}
	if config.EventLog.RotationHours <= 0 {
		config.EventLog.RotationHours = 24
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", config.Server.Port)
	}

	validProviders := []string{ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderMock}
	found := false
	for _, p := range validProviders {
		if config.Provider.Name == p {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid provider '%s', must be one of: %s",
			config.Provider.Name, strings.Join(validProviders, ", "))
	}

	switch config.Provider.Name {
	case ProviderOpenAI, ProviderAnthropic:
		if config.Provider.APIKey == "" {
			return fmt.Errorf("provider %s: api_key is required", config.Provider.Name)
		}
	case ProviderOllama:
		if !strings.HasPrefix(config.Provider.Host, "http://") && !strings.HasPrefix(config.Provider.Host, "https://") {
			return fmt.Errorf("provider ollama: host must be an http(s) URL, got '%s'", config.Provider.Host)
		}
	}

	return nil
}

// ListenAddr returns the host:port the server should bind.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
