package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LLM_PROVIDER", "LLM_MAX_TOKENS", "LLM_TEMPERATURE",
		"OPENAI_MODEL", "ANTHROPIC_MODEL", "DEEPSEEK_MODEL", "GEMINI_MODEL",
		"RESPONDER_MAX_ITERATIONS", "RESPONDER_DEBUG",
		"CHAT_API_TOKEN", "CHAT_BASE_URL", "CHAT_ROOM", "CHAT_MAX_RETRIES",
		"MEMORY_DRIVER", "MEMORY_PATH", "ABBOT_ORGANIZATION", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "abbot.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadValidProvider(t *testing.T) {
	clearEnv(t)
	settings, err := Load("", "openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", settings.LLM.Provider)
	}
	if settings.LLM.Model != "gpt-4o" {
		t.Errorf("expected default model 'gpt-4o', got %q", settings.LLM.Model)
	}
	if settings.Responder.MaxIterations != 3 {
		t.Errorf("expected 3 max iterations, got %d", settings.Responder.MaxIterations)
	}
	if settings.Memory.Driver != MemoryDriverInMemory {
		t.Errorf("expected in-memory driver, got %q", settings.Memory.Driver)
	}
}

func TestLoadWithAlias(t *testing.T) {
	clearEnv(t)
	settings, err := Load("", "claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic' (normalized from 'claude'), got %q", settings.LLM.Provider)
	}
}

func TestLoadProviderFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "deepseek")
	t.Setenv("DEEPSEEK_MODEL", "deepseek-reasoner")

	settings, err := Load("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "deepseek" || settings.LLM.Model != "deepseek-reasoner" {
		t.Errorf("unexpected LLM config: %+v", settings.LLM)
	}
}

func TestLoadUnknownProvider(t *testing.T) {
	clearEnv(t)
	_, err := Load("", "unknown_provider")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestAPIKeyForValidProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	key, err := APIKeyFor("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-key" {
		t.Errorf("expected 'test-key', got %q", key)
	}
}

func TestAPIKeyForMissing(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := APIKeyFor("openai")
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestAPIKeyForUnknownProvider(t *testing.T) {
	_, err := APIKeyFor("unknown")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestLoadWithInvalidEnvVar(t *testing.T) {
	tests := map[string]string{
		"LLM_MAX_TOKENS":           "not-a-number",
		"LLM_TEMPERATURE":          "warm",
		"RESPONDER_MAX_ITERATIONS": "many",
		"RESPONDER_DEBUG":          "sometimes",
		"CHAT_MAX_RETRIES":         "-1",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			_, err := Load("", "openai")
			if err == nil {
				t.Fatalf("expected error for invalid %s", key)
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("expected error to name %s, got %v", key, err)
			}
		})
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
llm:
  provider: gemini
  temperature: 0.2
responder:
  max_iterations: 5
  debug: true
chat:
  room: C123
memory:
  driver: sqlite
  path: /tmp/abbot.db
organization: acme
`)

	settings, err := Load(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "gemini" || settings.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("unexpected LLM config: %+v", settings.LLM)
	}
	if settings.LLM.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", settings.LLM.Temperature)
	}
	if settings.LLM.MaxTokens != 4096 {
		t.Errorf("expected default max tokens to survive the overlay, got %d", settings.LLM.MaxTokens)
	}
	if settings.Responder.MaxIterations != 5 || !settings.Responder.Debug {
		t.Errorf("unexpected responder config: %+v", settings.Responder)
	}
	if settings.Chat.Room != "C123" || settings.Chat.MaxRetries != 3 {
		t.Errorf("unexpected chat config: %+v", settings.Chat)
	}
	if settings.Memory.Driver != MemoryDriverSqlite || settings.Organization != "acme" {
		t.Errorf("unexpected memory/org config: %+v %q", settings.Memory, settings.Organization)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "llm:\n  provider: gemini\nresponder:\n  max_iterations: 5\n")
	t.Setenv("RESPONDER_MAX_ITERATIONS", "2")
	t.Setenv("LLM_PROVIDER", "anthropic")

	settings, err := Load(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Responder.MaxIterations != 2 {
		t.Errorf("expected env to win, got %d", settings.Responder.MaxIterations)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("expected env provider to win, got %q", settings.LLM.Provider)
	}

	settings, err = Load(path, "openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "openai" {
		t.Errorf("expected explicit provider to win, got %q", settings.LLM.Provider)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "responder:\n  max_iteration: 5\n")

	if _, err := Load(path, ""); err == nil {
		t.Error("expected error for misspelled key")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "")

	if _, err := Load(path, ""); err != nil {
		t.Errorf("empty config file should load defaults, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Settings){
		"zero iterations":     func(s *Settings) { s.Responder.MaxIterations = 0 },
		"temperature":         func(s *Settings) { s.LLM.Temperature = 3 },
		"unknown driver":      func(s *Settings) { s.Memory.Driver = "redis" },
		"sqlite without path": func(s *Settings) { s.Memory.Driver = MemoryDriverSqlite },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			s := defaults()
			mutate(&s)
			if err := s.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := defaults().Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestSupportedProviders(t *testing.T) {
	providers := SupportedProviders()
	want := []string{"anthropic", "deepseek", "gemini", "openai"}
	if strings.Join(providers, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, providers)
	}
}
