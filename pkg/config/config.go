package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zen-systems/fanroute/pkg/registry"
)

// Config holds the application configuration.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	DeepSeekAPIKey  string
	JudgeModel      string
	StatsPath       string
	ListenAddr      string
	Models          []ModelConfig
	ConfigDir       string
}

// FileConfig represents the structure of ~/.fanroute/config.yaml
type FileConfig struct {
	APIKeys    APIKeysConfig `yaml:"api_keys"`
	JudgeModel string        `yaml:"judge_model,omitempty"`
	StatsPath  string        `yaml:"stats_path,omitempty"`
	ListenAddr string        `yaml:"listen_addr,omitempty"`
	Models     []ModelConfig `yaml:"models,omitempty"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
	Google    string `yaml:"google"`
	DeepSeek  string `yaml:"deepseek"`
}

// ModelConfig declares one registry entry in the config file.
type ModelConfig struct {
	Key       string   `yaml:"key"`
	Name      string   `yaml:"name"`
	Provider  string   `yaml:"provider"`
	ModelID   string   `yaml:"model_id"`
	Strengths []string `yaml:"strengths,omitempty"`
	CostPer1K float64  `yaml:"cost_per_1k,omitempty"`
	Default   bool     `yaml:"default,omitempty"`
}

// Load reads configuration from the config file and environment variables.
// Environment variables take precedence over file configuration.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads like Load but reads the given config file instead of the
// default ~/.fanroute/config.yaml. An empty path selects the default.
func LoadFrom(path string) (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	if path == "" {
		path = filepath.Join(configDir, "config.yaml")
	}
	fileConfig := loadFileConfig(path)

	cfg := &Config{
		AnthropicAPIKey: getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		GoogleAPIKey:    getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google),
		DeepSeekAPIKey:  getEnvOrDefault("DEEPSEEK_API_KEY", fileConfig.APIKeys.DeepSeek),
		JudgeModel:      getEnvOrDefault("FANROUTE_JUDGE_MODEL", fileConfig.JudgeModel),
		StatsPath:       getEnvOrDefault("FANROUTE_STATS_PATH", fileConfig.StatsPath),
		ListenAddr:      getEnvOrDefault("FANROUTE_LISTEN_ADDR", fileConfig.ListenAddr),
		Models:          fileConfig.Models,
		ConfigDir:       configDir,
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.StatsPath == "" {
		cfg.StatsPath = filepath.Join(cfg.ConfigDir, "stats.csv")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	// Judge model default lives in pkg/decision; an empty value selects it.
}

// Registry builds the model registry from configured models, or the built-in
// table when none are configured.
func (c *Config) Registry() (*registry.Registry, error) {
	if len(c.Models) == 0 {
		return registry.Default(), nil
	}

	profiles := make([]registry.ModelProfile, 0, len(c.Models))
	defaultKey := ""
	for _, m := range c.Models {
		profiles = append(profiles, registry.ModelProfile{
			Key:       m.Key,
			Name:      m.Name,
			Provider:  m.Provider,
			ModelID:   m.ModelID,
			Strengths: m.Strengths,
			CostPer1K: m.CostPer1K,
		})
		if m.Default {
			defaultKey = m.Key
		}
	}

	reg, err := registry.New(profiles...)
	if err != nil {
		return nil, err
	}
	if defaultKey != "" {
		return reg.WithDefault(defaultKey)
	}
	return reg, nil
}

// HasBackend returns true if the API key for the given provider is configured.
func (c *Config) HasBackend(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	case "deepseek":
		return c.DeepSeekAPIKey != ""
	default:
		return false
	}
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg // Return empty config if file doesn't exist
	}

	_ = yaml.Unmarshal(data, cfg) // Ignore parse errors, use defaults
	return cfg
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".fanroute")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
