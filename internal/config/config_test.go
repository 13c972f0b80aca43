package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.HealthPort)
	assert.True(t, cfg.Transports.HTTP.Enabled)
	assert.Equal(t, 8000, cfg.Transports.HTTP.Port)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, cfg.Transports.HTTP.CORSOrigins)
	assert.False(t, cfg.Transports.NATS.Enabled)
	assert.Equal(t, "toneshift.rewrite", cfg.Transports.NATS.Subject)
	assert.Equal(t, "toneshift", cfg.Transports.NATS.Queue)
	assert.Equal(t, "ollama", cfg.Backends.Chat.API)
	assert.Equal(t, 120*time.Second, cfg.Backends.Local.Timeout)
	assert.Equal(t, 120*time.Second, cfg.Backends.Chat.Timeout)
	assert.Equal(t, "SPEECH_API_KEY", cfg.Speech.APIKeyEnv)
	assert.Equal(t, 1000, cfg.Document.MaxChars)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TONESHIFT_BACKENDS_CHAT_API", "openai")
	t.Setenv("TONESHIFT_BACKENDS_CHAT_MODEL", "gpt-4o-mini")
	t.Setenv("TONESHIFT_SPEECH_MODEL", "tts-1-hd")
	t.Setenv("TONESHIFT_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Backends.Chat.API)
	assert.Equal(t, "gpt-4o-mini", cfg.Backends.Chat.Model)
	assert.Equal(t, "tts-1-hd", cfg.Speech.Model)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFileResolvesEnvRefs(t *testing.T) {
	t.Setenv("TEST_CHAT_KEY", "sk-from-env")

	path := filepath.Join(t.TempDir(), "toneshift.yaml")
	data := []byte(`
backends:
  chat:
    api: anthropic
    model: claude-3-5-haiku-latest
    api_key: ${TEST_CHAT_KEY}
speech:
  enabled: true
  voices:
    urgent: shimmer
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Backends.Chat.API)
	assert.Equal(t, "sk-from-env", cfg.Backends.Chat.APIKey)
	assert.True(t, cfg.Speech.Enabled)
	assert.Equal(t, "shimmer", cfg.Speech.Voices["urgent"])
}

func TestLoadRejectsUnknownChatAPI(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TONESHIFT_BACKENDS_CHAT_API", "carrier-pigeon")

	_, err := Load("")
	assert.ErrorContains(t, err, "backends.chat.api")
}

func TestResolveEnvRef(t *testing.T) {
	t.Setenv("TEST_SECRET", "value")

	assert.Equal(t, "value", resolveEnvRef("${TEST_SECRET}"))
	assert.Equal(t, "${TEST_UNSET_SECRET}", resolveEnvRef("${TEST_UNSET_SECRET}"))
	assert.Equal(t, "literal", resolveEnvRef("literal"))
}
