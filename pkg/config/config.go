package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxConfigSize = 1 << 20 // 1MB

// Config represents the application configuration
type Config struct {
	// Nostr identity and transport
	Relays     []string `yaml:"relays"`
	PrivateKey string   `yaml:"private_key"` // hex or nsec
	NWC        string   `yaml:"nwc"`         // Nostr Wallet Connect string

	// LLM Configuration
	LLM LLMConfig `yaml:"llm"`

	// Conversation history backend
	Conversation ConversationConfig `yaml:"conversation"`

	// Observability
	Metrics MetricsConfig `yaml:"metrics"`
}

// LLMConfig selects and configures the completion provider
type LLMConfig struct {
	Provider       string  `yaml:"provider"` // openai, bedrock
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	EmbeddingModel string  `yaml:"embedding_model"`
	Temperature    float64 `yaml:"temperature"`
}

// ConversationConfig selects the thread history store
type ConversationConfig struct {
	Backend    string `yaml:"backend"` // memory, redis
	RedisAddr  string `yaml:"redis_addr"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	MaxThreads int    `yaml:"max_threads"`
}

// MetricsConfig controls the metrics endpoint
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

// FromEnv builds a configuration from environment variables alone.
func FromEnv() *Config {
	var cfg Config
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.Conversation.Backend == "" {
		c.Conversation.Backend = "memory"
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}
}

func (c *Config) applyEnv() {
	if len(c.Relays) == 0 {
		if relays := os.Getenv("NOSTR_RELAYS"); relays != "" {
			for _, r := range strings.Split(relays, ",") {
				if r = strings.TrimSpace(r); r != "" {
					c.Relays = append(c.Relays, r)
				}
			}
		}
	}
	if c.PrivateKey == "" {
		c.PrivateKey = os.Getenv("NOSTR_PRIVATE_KEY")
	}
	if c.NWC == "" {
		c.NWC = os.Getenv("NOSTR_NWC")
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if c.LLM.Model == "" {
		c.LLM.Model = os.Getenv("LLM_MODEL")
	}
	if c.Conversation.RedisAddr == "" {
		c.Conversation.RedisAddr = os.Getenv("REDIS_ADDR")
	}
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Relays) == 0 {
		return fmt.Errorf("at least one relay is required")
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for the openai provider")
		}
	case "bedrock":
		// Credentials come from the AWS default chain.
	default:
		return fmt.Errorf("unknown llm provider: %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}

	switch c.Conversation.Backend {
	case "memory":
	case "redis":
		if c.Conversation.RedisAddr == "" {
			return fmt.Errorf("conversation.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown conversation backend: %q", c.Conversation.Backend)
	}

	return nil
}
