package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != "openai" {
		t.Errorf("provider = %q, want openai", cfg.Provider)
	}
	if cfg.Bot.Name != "Alex" || cfg.Bot.Company != "TechInnovate Solutions" {
		t.Errorf("bot defaults = %+v", cfg.Bot)
	}
	if cfg.Bot.Voice != "Polly.Joanna-Neural" {
		t.Errorf("voice = %q", cfg.Bot.Voice)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("store backend = %q, want memory", cfg.Store.Backend)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
provider: anthropic
providers:
  anthropic:
    api_key: sk-test
    model: claude-sonnet-4-20250514
bot:
  name: Morgan
  company: Acme Gadgets
server:
  port: 8080
  public_url: https://demo.ngrok.app
twilio:
  account_sid: AC123
  from_number: "+15559990000"
store:
  backend: sqlite
  retention_hours: 24
backend_timeout_seconds: 10
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "anthropic" {
		t.Errorf("provider = %q", cfg.Provider)
	}
	if pc := cfg.GetProviderConfig("anthropic"); pc.APIKey != "sk-test" {
		t.Errorf("api key = %q", pc.APIKey)
	}
	if cfg.Bot.Name != "Morgan" || cfg.Bot.Company != "Acme Gadgets" {
		t.Errorf("bot = %+v", cfg.Bot)
	}
	// Unset file fields keep their defaults.
	if cfg.Bot.Voice != "Polly.Joanna-Neural" {
		t.Errorf("voice = %q, want default", cfg.Bot.Voice)
	}
	if cfg.Server.Port != 8080 || cfg.Server.PublicURL != "https://demo.ngrok.app" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.RetentionHours != 24 {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.BackendTimeoutSeconds != 10 {
		t.Errorf("backend timeout = %d", cfg.BackendTimeoutSeconds)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "openai" || cfg.Bot.Name != "Alex" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SALESLINE_PROVIDER", "anthropic")
	t.Setenv("SALESLINE_MODEL", "claude-haiku-override")
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC999")
	t.Setenv("TWILIO_AUTH_TOKEN", "tok")
	t.Setenv("TWILIO_PHONE_NUMBER", "+15551234567")
	t.Setenv("PORT", "9000")
	t.Setenv("PUBLIC_URL", "https://env.ngrok.app")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "anthropic" || cfg.Model != "claude-haiku-override" {
		t.Errorf("provider/model = %q/%q", cfg.Provider, cfg.Model)
	}
	if pc := cfg.GetProviderConfig("anthropic"); pc.APIKey != "sk-env" {
		t.Errorf("api key = %q", pc.APIKey)
	}
	if cfg.Twilio.AccountSID != "AC999" || cfg.Twilio.FromNumber != "+15551234567" {
		t.Errorf("twilio = %+v", cfg.Twilio)
	}
	if cfg.Server.Port != 9000 || cfg.Server.PublicURL != "https://env.ngrok.app" {
		t.Errorf("server = %+v", cfg.Server)
	}
}

func TestActiveModel(t *testing.T) {
	clearEnv(t)

	cfg := DefaultConfig()
	if got := cfg.ActiveModel(); got != "gpt-4o" {
		t.Errorf("default model = %q", got)
	}

	cfg.Providers["openai"] = &ProviderConfig{Model: "gpt-4o-mini"}
	if got := cfg.ActiveModel(); got != "gpt-4o-mini" {
		t.Errorf("provider model = %q", got)
	}

	cfg.Model = "gpt-5"
	if got := cfg.ActiveModel(); got != "gpt-5" {
		t.Errorf("global override = %q", got)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SALESLINE_PROVIDER", "SALESLINE_MODEL",
		"LLM_API_KEY", "LLM_BASE_URL",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY",
		"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_PHONE_NUMBER",
		"PORT", "PUBLIC_URL",
	} {
		t.Setenv(key, "")
	}
}
