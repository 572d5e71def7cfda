package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pdf-translator/internal/types"
)

func TestNewConfigManager(t *testing.T) {
	t.Run("with custom path", func(t *testing.T) {
		customPath := filepath.Join(t.TempDir(), "test-config.json")
		cm, err := NewConfigManager(customPath)
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}
		if cm.GetConfigPath() != customPath {
			t.Errorf("expected config path %s, got %s", customPath, cm.GetConfigPath())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		cm, err := NewConfigManager("")
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}
		if cm.GetConfigPath() == "" {
			t.Error("expected non-empty config path")
		}
	})
}

func TestConfigManager_LoadMissingFile(t *testing.T) {
	t.Setenv(EnvOpenAIBaseURL, "")
	t.Setenv(EnvModel, "")

	cm, err := NewConfigManager(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}
	if err := cm.Load(); err != nil {
		t.Fatalf("Load of missing file should use defaults, got %v", err)
	}
	if cm.GetTargetLanguage() != DefaultTargetLanguage {
		t.Errorf("expected default language %s, got %s", DefaultTargetLanguage, cm.GetTargetLanguage())
	}
	if cm.GetModel() != DefaultModel {
		t.Errorf("expected default model %s, got %s", DefaultModel, cm.GetModel())
	}
	if cm.GetBaseURL() != DefaultBaseURL {
		t.Errorf("expected default base URL %s, got %s", DefaultBaseURL, cm.GetBaseURL())
	}
	if cm.GetFontFamily() != DefaultFontFamily {
		t.Errorf("expected default font %s, got %s", DefaultFontFamily, cm.GetFontFamily())
	}
}

func TestConfigManager_LoadInvalidJSON(t *testing.T) {
	t.Setenv(EnvModel, "")

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{broken"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cm, err := NewConfigManager(path)
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}
	if err := cm.Load(); err != nil {
		t.Fatalf("Load of invalid JSON should fall back to defaults, got %v", err)
	}
	if cm.GetModel() != DefaultModel {
		t.Errorf("expected default model after invalid config, got %s", cm.GetModel())
	}
}

func TestConfigManager_LoadSaveRoundTrip(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "")
	t.Setenv(EnvOpenAIBaseURL, "")
	t.Setenv(EnvModel, "")

	path := filepath.Join(t.TempDir(), "sub", "config.json")

	cm, err := NewConfigManager(path)
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}
	cm.SetConfig(&types.Config{
		OpenAIAPIKey:   "sk-test",
		OpenAIBaseURL:  "https://api.example.com/v1",
		OpenAIModel:    "gpt-4o-mini",
		TargetLanguage: "ja",
		FontFamily:     "NanumGothic",
		FontFile:       "/fonts/NanumGothic.ttf",
	})
	if err := cm.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := NewConfigManager(path)
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reloaded.GetAPIKey() != "sk-test" {
		t.Errorf("expected saved API key, got %q", reloaded.GetAPIKey())
	}
	if reloaded.GetBaseURL() != "https://api.example.com/v1" {
		t.Errorf("expected saved base URL, got %q", reloaded.GetBaseURL())
	}
	if reloaded.GetModel() != "gpt-4o-mini" {
		t.Errorf("expected saved model, got %q", reloaded.GetModel())
	}
	if reloaded.GetTargetLanguage() != "ja" {
		t.Errorf("expected saved language, got %q", reloaded.GetTargetLanguage())
	}
	if reloaded.GetFontFile() != "/fonts/NanumGothic.ttf" {
		t.Errorf("expected saved font file, got %q", reloaded.GetFontFile())
	}

	// Config file permissions keep the credential private.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
}

func TestConfigManager_EnvFallbacks(t *testing.T) {
	cm, err := NewConfigManager(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}
	if err := cm.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	t.Setenv(EnvOpenAIAPIKey, "sk-from-env")
	t.Setenv(EnvOpenAIBaseURL, "https://env.example.com/v1")
	t.Setenv(EnvModel, "env-model")

	if cm.GetAPIKey() != "sk-from-env" {
		t.Errorf("expected env API key, got %q", cm.GetAPIKey())
	}
	if cm.GetBaseURL() != "https://env.example.com/v1" {
		t.Errorf("expected env base URL, got %q", cm.GetBaseURL())
	}
	if cm.GetModel() != "env-model" {
		t.Errorf("expected env model, got %q", cm.GetModel())
	}
}

// TestConfigManager_EnvOverridesConfig verifies the environment wins
// over file-configured values for the key, base URL and model.
func TestConfigManager_EnvOverridesConfig(t *testing.T) {
	cm, err := NewConfigManager(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}
	t.Setenv(EnvOpenAIAPIKey, "")
	t.Setenv(EnvOpenAIBaseURL, "")
	t.Setenv(EnvModel, "")
	cm.SetConfig(&types.Config{
		OpenAIAPIKey:  "sk-configured",
		OpenAIBaseURL: "https://configured.example.com/v1",
		OpenAIModel:   "configured-model",
	})

	if cm.GetAPIKey() != "sk-configured" {
		t.Errorf("expected configured key, got %q", cm.GetAPIKey())
	}
	if cm.GetBaseURL() != "https://configured.example.com/v1" {
		t.Errorf("expected configured base URL, got %q", cm.GetBaseURL())
	}
	if cm.GetModel() != "configured-model" {
		t.Errorf("expected configured model, got %q", cm.GetModel())
	}

	t.Setenv(EnvOpenAIAPIKey, "sk-from-env")
	t.Setenv(EnvOpenAIBaseURL, "https://env.example.com/v1")
	t.Setenv(EnvModel, "env-model")

	if cm.GetAPIKey() != "sk-from-env" {
		t.Errorf("expected env key to override, got %q", cm.GetAPIKey())
	}
	if cm.GetBaseURL() != "https://env.example.com/v1" {
		t.Errorf("expected env base URL to override, got %q", cm.GetBaseURL())
	}
	if cm.GetModel() != "env-model" {
		t.Errorf("expected env model to override, got %q", cm.GetModel())
	}
}

// TestConfigManager_LoadReadsFileValues verifies file-configured values
// are invisible until Load is called, and visible right after. Callers
// constructing a manager must Load before using the getters.
func TestConfigManager_LoadReadsFileValues(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "")
	t.Setenv(EnvModel, "")

	path := filepath.Join(t.TempDir(), "config.json")
	data, _ := json.Marshal(&types.Config{
		OpenAIAPIKey: "sk-from-file",
		OpenAIModel:  "file-model",
	})
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cm, err := NewConfigManager(path)
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}
	if got := cm.GetAPIKey(); got != "" {
		t.Errorf("expected empty key before Load, got %q", got)
	}

	if err := cm.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cm.GetAPIKey(); got != "sk-from-file" {
		t.Errorf("expected file key after Load, got %q", got)
	}
	if got := cm.GetModel(); got != "file-model" {
		t.Errorf("expected file model after Load, got %q", got)
	}
}

func TestConfigManager_SetAPIKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cm, err := NewConfigManager(path)
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}
	if err := cm.SetAPIKey("sk-saved"); err != nil {
		t.Fatalf("SetAPIKey failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	var saved types.Config
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("saved config is not valid JSON: %v", err)
	}
	if saved.OpenAIAPIKey != "sk-saved" {
		t.Errorf("expected persisted key, got %q", saved.OpenAIAPIKey)
	}
}
