package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/s-archdev/mithra-llm/internal/runner"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func TestLoadDefaultsToLocalOllama(t *testing.T) {
	isolateHome(t)

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LLM.Provider != ProviderOllama {
		t.Fatalf("provider = %q, want %q", cfg.LLM.Provider, ProviderOllama)
	}
	if cfg.LLM.Ollama.Model != "llama3" {
		t.Fatalf("ollama model = %q, want llama3", cfg.LLM.Ollama.Model)
	}
	if cfg.LLM.Timeout != 0 {
		t.Fatalf("llm timeout = %d, want 0", cfg.LLM.Timeout)
	}
	if cfg.Path() != "" {
		t.Fatalf("path = %q, want empty when no file exists", cfg.Path())
	}
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	isolateHome(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")
	t.Setenv("MITHRA_SHELL_TIMEOUT", "15")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  provider: claude
  claude:
    model: claude-3-5-sonnet-latest
shell:
  path: /bin/bash
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(LoadOptions{Path: cfgPath})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LLM.Provider != ProviderClaude {
		t.Fatalf("provider = %q, want claude", cfg.LLM.Provider)
	}
	if cfg.LLM.Claude.APIKey != "sk-from-env" {
		t.Fatalf("claude api key = %q, want value from env", cfg.LLM.Claude.APIKey)
	}
	if cfg.LLM.Claude.Model != "claude-3-5-sonnet-latest" {
		t.Fatalf("claude model = %q", cfg.LLM.Claude.Model)
	}
	if cfg.Shell.Path != "/bin/bash" {
		t.Fatalf("shell path = %q, want /bin/bash", cfg.Shell.Path)
	}
	if cfg.Shell.Timeout != 15 {
		t.Fatalf("shell timeout = %d, want 15", cfg.Shell.Timeout)
	}
	if cfg.Path() != cfgPath {
		t.Fatalf("path = %q, want %q", cfg.Path(), cfgPath)
	}
}

func TestLoadPrefixedEnvWinsOverConventional(t *testing.T) {
	isolateHome(t)
	t.Setenv("MITHRA_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "conventional")
	t.Setenv("MITHRA_LLM_OPENAI_API_KEY", "prefixed")

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LLM.OpenAI.APIKey != "prefixed" {
		t.Fatalf("openai api key = %q, want prefixed", cfg.LLM.OpenAI.APIKey)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	isolateHome(t)

	_, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "nope.yaml")})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadFlagOverrides(t *testing.T) {
	isolateHome(t)

	cfg, err := Load(LoadOptions{Provider: "LLAMA-CPP", Model: "qwen2.5-coder", Verbose: true, LogLevel: "debug"})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LLM.Provider != ProviderLlamaCPP {
		t.Fatalf("provider = %q, want llama-cpp", cfg.LLM.Provider)
	}
	if cfg.ActiveModel() != "qwen2.5-coder" {
		t.Fatalf("active model = %q", cfg.ActiveModel())
	}
	if !cfg.Log.Verbose || cfg.Log.Level != "debug" {
		t.Fatalf("log = %+v, want verbose debug", cfg.Log)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	isolateHome(t)

	_, err := Load(LoadOptions{Provider: "skynet"})
	if err == nil || !strings.Contains(err.Error(), "skynet") {
		t.Fatalf("err = %v, want unsupported provider error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"openai without key or base url", func(c *Config) { c.LLM.Provider = ProviderOpenAI }, true},
		{"openai compatible server without key", func(c *Config) {
			c.LLM.Provider = ProviderOpenAI
			c.LLM.OpenAI.BaseURL = "http://localhost:1234/v1"
		}, false},
		{"azure missing deployment", func(c *Config) {
			c.LLM.Provider = ProviderAzureOpenAI
			c.LLM.AzureOpenAI.APIKey = "k"
			c.LLM.AzureOpenAI.BaseURL = "https://example.openai.azure.com"
		}, true},
		{"gemini with key", func(c *Config) {
			c.LLM.Provider = ProviderGemini
			c.LLM.Gemini.APIKey = "k"
		}, false},
		{"claude without key", func(c *Config) { c.LLM.Provider = ProviderClaude }, true},
		{"negative llm timeout", func(c *Config) { c.LLM.Timeout = -1 }, true},
		{"negative shell timeout", func(c *Config) { c.Shell.Timeout = -1 }, true},
		{"empty shell", func(c *Config) { c.Shell.Path = " " }, true},
		{"empty ollama model", func(c *Config) { c.LLM.Ollama.Model = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveConfigThenLoad(t *testing.T) {
	isolateHome(t)

	cfg := DefaultConfig()
	cfg.LLM.Provider = ProviderGemini
	cfg.LLM.Gemini.APIKey = "g-key"
	cfg.LLM.SystemPrompt = "custom prompt"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("save config: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat saved config: %v", err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		t.Fatalf("config perm = %v, want owner only", perm)
	}

	loaded, err := Load(LoadOptions{Path: path})
	if err != nil {
		t.Fatalf("load saved config: %v", err)
	}
	if loaded.LLM.Provider != ProviderGemini || loaded.LLM.Gemini.APIKey != "g-key" {
		t.Fatalf("loaded llm = %+v", loaded.LLM)
	}
	if loaded.LLM.SystemPrompt != "custom prompt" {
		t.Fatalf("system prompt = %q", loaded.LLM.SystemPrompt)
	}
}

func TestRedactedHidesSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.OpenAI.APIKey = "sk-secret"
	cfg.LLM.Claude.APIKey = "sk-ant"

	out := cfg.Redacted()
	if out.LLM.OpenAI.APIKey == "sk-secret" || out.LLM.Claude.APIKey == "sk-ant" {
		t.Fatal("expected api keys to be redacted")
	}
	if out.LLM.Gemini.APIKey != "" {
		t.Fatalf("empty key should stay empty, got %q", out.LLM.Gemini.APIKey)
	}
	if cfg.LLM.OpenAI.APIKey != "sk-secret" {
		t.Fatal("Redacted must not modify the original")
	}

	data, err := out.YAML()
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if strings.Contains(string(data), "sk-secret") {
		t.Fatalf("yaml output leaks secret:\n%s", data)
	}
}

func TestDefaultShellMatchesRunner(t *testing.T) {
	isolateHome(t)

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	path, flag := runner.DefaultShell()
	if cfg.Shell.Path != path || cfg.Shell.Flag != flag {
		t.Fatalf("shell = (%q, %q), want (%q, %q)", cfg.Shell.Path, cfg.Shell.Flag, path, flag)
	}
}
