// ABOUTME: Configuration loading and parsing for sitechat.
// ABOUTME: Supports YAML files with environment variable expansion plus env-only mode.

package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the complete sitechat configuration.
type Config struct {
	Webhook WebhookConfig `yaml:"webhook"`
	Backend BackendConfig `yaml:"backend"`
	Storage StorageConfig `yaml:"storage"`
	Chat    ChatConfig    `yaml:"chat"`
	Logging LoggingConfig `yaml:"logging"`
}

// WebhookConfig holds the workflow webhook endpoint settings.
type WebhookConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"` // optional bearer token
}

// BackendConfig holds the optional remote persistence backend. Both fields
// must be set together; leaving them empty selects local-only mode.
type BackendConfig struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

// Enabled reports whether remote persistence is configured.
func (b BackendConfig) Enabled() bool {
	return b.URL != "" && b.Key != ""
}

// StorageConfig holds local storage configuration.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// ChatConfig holds presentation settings consumed by the UI layer.
type ChatConfig struct {
	Title string `yaml:"title"`
	Debug bool   `yaml:"debug"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// FromEnv builds a Config purely from SITECHAT_* environment variables, for
// running without a config file.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Webhook: WebhookConfig{
			URL:   os.Getenv("SITECHAT_WEBHOOK_URL"),
			Token: os.Getenv("SITECHAT_WEBHOOK_TOKEN"),
		},
		Backend: BackendConfig{
			URL: os.Getenv("SITECHAT_BACKEND_URL"),
			Key: os.Getenv("SITECHAT_BACKEND_KEY"),
		},
		Storage: StorageConfig{
			Path: os.Getenv("SITECHAT_STORAGE_PATH"),
		},
		Chat: ChatConfig{
			Title: os.Getenv("SITECHAT_TITLE"),
			Debug: os.Getenv("SITECHAT_DEBUG") == "true",
		},
		Logging: LoggingConfig{
			Level:  os.Getenv("SITECHAT_LOG_LEVEL"),
			Format: os.Getenv("SITECHAT_LOG_FORMAT"),
		},
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Chat.Title == "" {
		c.Chat.Title = "SiteBuilder"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks that all required configuration fields are present and
// consistent. The webhook URL is the only hard requirement; its absence is a
// fatal configuration error reported to the user.
func (c *Config) Validate() error {
	if c.Webhook.URL == "" {
		return fmt.Errorf("webhook.url is required (set SITECHAT_WEBHOOK_URL)")
	}

	// The backend pair selects remote persistence; a half-configured pair is
	// almost certainly a mistake rather than intentional local-only mode.
	if (c.Backend.URL == "") != (c.Backend.Key == "") {
		return fmt.Errorf("backend.url and backend.key must be set together")
	}

	return nil
}
