// Package config provides configuration management for the PDF translator.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name
	DefaultConfigFileName = "pdf-translator-config.json"
	// EnvOpenAIAPIKey is the environment variable name for the API key
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	// EnvOpenAIBaseURL is the environment variable name for the API base URL
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	// EnvModel is the environment variable name for the model override
	EnvModel = "PDFTRANSLATE_MODEL"
	// DefaultBaseURL is the default OpenAI-compatible API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the default chat model to use
	DefaultModel = "gpt-4o"
	// DefaultTargetLanguage is the default translation target
	DefaultTargetLanguage = "ko"
	// DefaultFontFamily is the font family used on composed pages when the
	// config does not name one
	DefaultFontFamily = "Helvetica"
)

// ConfigManager manages application configuration
type ConfigManager struct {
	configPath string
	config     *types.Config
}

// NewConfigManager creates a new ConfigManager with the specified config path.
// If configPath is empty, it uses the default path in user's home directory.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "pdf-translator", DefaultConfigFileName)
	}

	logger.Info("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		config:     defaultConfig(),
	}, nil
}

// defaultConfig returns a Config with default values
func defaultConfig() *types.Config {
	return &types.Config{
		OpenAIAPIKey:   "",
		OpenAIBaseURL:  "", // resolved via env, then DefaultBaseURL
		OpenAIModel:    "", // resolved via env, then DefaultModel
		TargetLanguage: DefaultTargetLanguage,
		FontFamily:     DefaultFontFamily,
		WorkDirectory:  "",
	}
}

// Load loads configuration from the config file.
// If the file doesn't exist, it uses default values.
// Environment variables take precedence over file values for the API
// key, base URL and model; the getters consult them first.
func (m *ConfigManager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("config file not found, using defaults", logger.String("path", m.configPath))
			m.config = defaultConfig()
		} else {
			logger.Error("failed to read config file", err, logger.String("path", m.configPath))
			return types.NewAppError(types.ErrConfig, "failed to read config file", err)
		}
	} else {
		config := &types.Config{}
		if err := json.Unmarshal(data, config); err != nil {
			// Invalid JSON, use defaults
			logger.Warn("invalid config file format, using defaults", logger.String("path", m.configPath), logger.Err(err))
			m.config = defaultConfig()
		} else {
			logger.Info("configuration loaded successfully",
				logger.String("path", m.configPath),
				logger.Int("apiKeyLength", len(config.OpenAIAPIKey)),
				logger.String("baseURL", config.OpenAIBaseURL),
				logger.String("model", config.OpenAIModel))
			m.config = config
		}
	}

	// Apply defaults for empty fields. Model and base URL stay empty so
	// the getters can consult the environment first.
	if m.config.TargetLanguage == "" {
		m.config.TargetLanguage = DefaultTargetLanguage
	}
	if m.config.FontFamily == "" {
		m.config.FontFamily = DefaultFontFamily
	}

	return nil
}

// Save saves the current configuration to the config file.
func (m *ConfigManager) Save() error {
	logger.Debug("saving configuration", logger.String("path", m.configPath))

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		logger.Error("failed to marshal config", err)
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Info("configuration saved successfully", logger.String("path", m.configPath))
	return nil
}

// GetAPIKey returns the API key.
// The environment variable overrides the config file value.
func (m *ConfigManager) GetAPIKey() string {
	if env := os.Getenv(EnvOpenAIAPIKey); env != "" {
		return env
	}
	if m.config != nil {
		return m.config.OpenAIAPIKey
	}
	return ""
}

// SetAPIKey sets the API key and saves the configuration.
func (m *ConfigManager) SetAPIKey(key string) error {
	logger.Info("setting API key")
	if m.config == nil {
		m.config = defaultConfig()
	}
	m.config.OpenAIAPIKey = key
	return m.Save()
}

// GetConfig returns the current configuration.
func (m *ConfigManager) GetConfig() *types.Config {
	if m.config == nil {
		return defaultConfig()
	}
	return m.config
}

// SetConfig sets the entire configuration.
func (m *ConfigManager) SetConfig(config *types.Config) {
	m.config = config
}

// GetConfigPath returns the path to the config file.
func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

// GetModel returns the chat model to use.
// The environment variable overrides the config file value.
func (m *ConfigManager) GetModel() string {
	if env := os.Getenv(EnvModel); env != "" {
		return env
	}
	if m.config != nil && m.config.OpenAIModel != "" {
		return m.config.OpenAIModel
	}
	return DefaultModel
}

// GetTargetLanguage returns the configured target language tag.
func (m *ConfigManager) GetTargetLanguage() string {
	if m.config != nil && m.config.TargetLanguage != "" {
		return m.config.TargetLanguage
	}
	return DefaultTargetLanguage
}

// GetWorkDirectory returns the work directory.
func (m *ConfigManager) GetWorkDirectory() string {
	if m.config != nil {
		return m.config.WorkDirectory
	}
	return ""
}

// GetBaseURL returns the API base URL.
// The environment variable overrides the config file value.
func (m *ConfigManager) GetBaseURL() string {
	if env := os.Getenv(EnvOpenAIBaseURL); env != "" {
		return env
	}
	if m.config != nil && m.config.OpenAIBaseURL != "" {
		return m.config.OpenAIBaseURL
	}
	return DefaultBaseURL
}

// GetFontFamily returns the font family for composed pages.
func (m *ConfigManager) GetFontFamily() string {
	if m.config != nil && m.config.FontFamily != "" {
		return m.config.FontFamily
	}
	return DefaultFontFamily
}

// GetFontFile returns the UTF-8 font file path, empty when unset.
func (m *ConfigManager) GetFontFile() string {
	if m.config != nil {
		return m.config.FontFile
	}
	return ""
}
