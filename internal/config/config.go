// Package config loads and manages salesline configuration.
// Configuration source priority (highest to lowest):
// 1. Environment variables (OPENAI_API_KEY, TWILIO_ACCOUNT_SID, SALESLINE_PROVIDER, etc.)
// 2. Config file path specified via --config flag
// 3. ~/.config/salesline/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ProviderConfig holds credentials and model selection for one LLM backend.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// BotConfig shapes the sales persona and the spoken voice.
type BotConfig struct {
	// Name the agent introduces itself with.
	Name string `yaml:"name"`

	// Company the agent represents.
	Company string `yaml:"company"`

	// Voice is the Twilio TTS voice for every spoken line.
	Voice string `yaml:"voice"`

	// ClosingPhrases and HesitationPhrases override the built-in intent
	// phrase lists when non-empty.
	ClosingPhrases    []string `yaml:"closing_phrases"`
	HesitationPhrases []string `yaml:"hesitation_phrases"`
}

// ServerConfig holds the webhook server settings.
type ServerConfig struct {
	// Port the HTTP server listens on.
	Port int `yaml:"port"`

	// PublicURL is the externally reachable base URL handed to Twilio.
	// Empty means discover it from a local ngrok agent.
	PublicURL string `yaml:"public_url"`
}

// TwilioConfig holds the telephony account settings.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`

	// FromNumber is the account phone number used as outbound caller id.
	FromNumber string `yaml:"from_number"`
}

// StoreConfig selects and tunes the session store.
type StoreConfig struct {
	// Backend: "memory" (default) or "sqlite".
	Backend string `yaml:"backend"`

	// Path of the sqlite database file. Empty uses the default location
	// under ~/.local/share/salesline.
	Path string `yaml:"path"`

	// RetentionHours keeps closed sessions around for that long before the
	// janitor purges them. 0 disables purging.
	RetentionHours int `yaml:"retention_hours"`
}

// ProfilesConfig selects the caller profile source.
type ProfilesConfig struct {
	// File is a YAML file mapping phone numbers to profiles. Empty uses the
	// built-in demo profile for every caller.
	File string `yaml:"file"`

	// Strict rejects calls from numbers missing from the file instead of
	// falling back to the demo profile.
	Strict bool `yaml:"strict"`
}

// EventsConfig controls the JSONL call event log.
type EventsConfig struct {
	// Disabled turns event logging (and the /monitor feed) off.
	Disabled bool `yaml:"disabled"`

	// Dir overrides the default events directory.
	Dir string `yaml:"dir"`
}

// Config is the complete configuration structure for salesline.
type Config struct {
	// Provider is the active LLM backend name ("openai" or "anthropic").
	Provider string `yaml:"provider"`

	// Model overrides the provider's configured model.
	Model string `yaml:"model"`

	// Providers holds per-provider configuration.
	Providers map[string]*ProviderConfig `yaml:"providers"`

	Bot      BotConfig      `yaml:"bot"`
	Server   ServerConfig   `yaml:"server"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	Store    StoreConfig    `yaml:"store"`
	Profiles ProfilesConfig `yaml:"profiles"`
	Events   EventsConfig   `yaml:"events"`

	// BackendTimeoutSeconds bounds one LLM round trip. 0 uses the built-in
	// default.
	BackendTimeoutSeconds int `yaml:"backend_timeout_seconds"`
}

// DefaultModels maps provider names to the model used when none is
// configured.
var DefaultModels = map[string]string{
	"openai":    "gpt-4o",
	"anthropic": "claude-sonnet-4-20250514",
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:  "openai",
		Providers: make(map[string]*ProviderConfig),
		Bot: BotConfig{
			Name:    "Alex",
			Company: "TechInnovate Solutions",
			Voice:   "Polly.Joanna-Neural",
		},
		Server: ServerConfig{
			Port: 5000,
		},
		Store: StoreConfig{
			Backend: "memory",
		},
	}
}

// Load reads the config file and merges environment variable overrides.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(home, ".config", "salesline", "config.yaml")
		}
	}

	// Read config file (use defaults if not found)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]*ProviderConfig)
	}

	return cfg, nil
}

// GetProviderConfig returns the config for the named provider, or an empty
// config if not found.
func (c *Config) GetProviderConfig(name string) *ProviderConfig {
	if pc, ok := c.Providers[name]; ok {
		return pc
	}
	return &ProviderConfig{}
}

// ActiveModel resolves the model for the active provider: the global
// override wins, then the provider's configured model, then the built-in
// default.
func (c *Config) ActiveModel() string {
	if c.Model != "" {
		return c.Model
	}
	if pc := c.GetProviderConfig(c.Provider); pc.Model != "" {
		return pc.Model
	}
	return DefaultModels[c.Provider]
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	ensure := func(name string) *ProviderConfig {
		if cfg.Providers == nil {
			cfg.Providers = make(map[string]*ProviderConfig)
		}
		if cfg.Providers[name] == nil {
			cfg.Providers[name] = &ProviderConfig{}
		}
		return cfg.Providers[name]
	}

	// Provider selection
	if v := os.Getenv("SALESLINE_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("SALESLINE_MODEL"); v != "" {
		cfg.Model = v
	}

	// Generic overrides target the active provider
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		ensure(cfg.Provider).APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		ensure(cfg.Provider).BaseURL = v
	}

	// Provider-specific keys
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && ensure("openai").APIKey == "" {
		cfg.Providers["openai"].APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && ensure("anthropic").APIKey == "" {
		cfg.Providers["anthropic"].APIKey = v
	}

	// Telephony
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		cfg.Twilio.AccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		cfg.Twilio.AuthToken = v
	}
	if v := os.Getenv("TWILIO_PHONE_NUMBER"); v != "" {
		cfg.Twilio.FromNumber = v
	}

	// Server
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PUBLIC_URL"); v != "" {
		cfg.Server.PublicURL = v
	}
}
