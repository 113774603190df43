package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
webhook:
  url: https://hooks.example.com/chat
  token: tok-123
backend:
  url: https://backend.example.com
  key: anon-key
storage:
  path: /tmp/sitechat.db
chat:
  title: My Site
  debug: true
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://hooks.example.com/chat", cfg.Webhook.URL)
	assert.Equal(t, "tok-123", cfg.Webhook.Token)
	assert.True(t, cfg.Backend.Enabled())
	assert.Equal(t, "/tmp/sitechat.db", cfg.Storage.Path)
	assert.Equal(t, "My Site", cfg.Chat.Title)
	assert.True(t, cfg.Chat.Debug)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
webhook:
  url: https://hooks.example.com/chat
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "SiteBuilder", cfg.Chat.Title)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Backend.Enabled())
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_WEBHOOK_URL", "https://expanded.example.com/hook")
	t.Setenv("TEST_WEBHOOK_TOKEN", "expanded-token")

	path := writeConfig(t, `
webhook:
  url: ${TEST_WEBHOOK_URL}
  token: ${TEST_WEBHOOK_TOKEN}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://expanded.example.com/hook", cfg.Webhook.URL)
	assert.Equal(t, "expanded-token", cfg.Webhook.Token)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "webhook: [not: valid")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingWebhookURL(t *testing.T) {
	path := writeConfig(t, `
chat:
  title: My Site
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook.url is required")
}

func TestLoad_HalfConfiguredBackend(t *testing.T) {
	path := writeConfig(t, `
webhook:
  url: https://hooks.example.com/chat
backend:
  url: https://backend.example.com
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set together")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("SITECHAT_WEBHOOK_URL", "https://hooks.example.com/chat")
	t.Setenv("SITECHAT_WEBHOOK_TOKEN", "tok")
	t.Setenv("SITECHAT_BACKEND_URL", "https://backend.example.com")
	t.Setenv("SITECHAT_BACKEND_KEY", "anon")
	t.Setenv("SITECHAT_DEBUG", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://hooks.example.com/chat", cfg.Webhook.URL)
	assert.Equal(t, "tok", cfg.Webhook.Token)
	assert.True(t, cfg.Backend.Enabled())
	assert.True(t, cfg.Chat.Debug)
	assert.Equal(t, "SiteBuilder", cfg.Chat.Title)
}

func TestFromEnv_MissingWebhookURL(t *testing.T) {
	t.Setenv("SITECHAT_WEBHOOK_URL", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SITECHAT_WEBHOOK_URL")
}

func TestBackendConfig_Enabled(t *testing.T) {
	assert.False(t, BackendConfig{}.Enabled())
	assert.False(t, BackendConfig{URL: "u"}.Enabled())
	assert.False(t, BackendConfig{Key: "k"}.Enabled())
	assert.True(t, BackendConfig{URL: "u", Key: "k"}.Enabled())
}
