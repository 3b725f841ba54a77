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
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Provider.Name)
	assert.Equal(t, DefaultOpenAIModel, cfg.Provider.Model)
	assert.Equal(t, "test-key", cfg.Provider.APIKey)
	assert.Equal(t, 120, cfg.Pipeline.StallTimeoutSec)
	assert.Equal(t, float32(0.3), cfg.Pipeline.Temperature)
	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
provider:
  name: mock
pipeline:
  stall_timeout_sec: 30
  temperature: 0.7
eventlog:
  disabled: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.ListenAddr())
	assert.Equal(t, ProviderMock, cfg.Provider.Name)
	assert.Equal(t, 30, cfg.Pipeline.StallTimeoutSec)
	assert.Equal(t, float32(0.7), cfg.Pipeline.Temperature)
	assert.True(t, cfg.EventLog.Disabled)
}

func TestLoadConfigEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_ORACLE_KEY", "substituted-key")
	path := writeConfig(t, `
provider:
  name: openai
  api_key: ${TEST_ORACLE_KEY}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "substituted-key", cfg.Provider.APIKey)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ORACLE_PROVIDER", "ollama")
	t.Setenv("ORACLE_MODEL", "phi4:latest")
	t.Setenv("ORACLE_PORT", "7070")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.Provider.Name)
	assert.Equal(t, "phi4:latest", cfg.Provider.Model)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, DefaultOllamaHost, cfg.Provider.Host)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "unknown provider",
			content: `
provider:
  name: telepathy
`,
		},
		{
			name: "openai without api key",
			content: `
provider:
  name: openai
`,
		},
		{
			name: "port out of range",
			content: `
server:
  port: 99999
provider:
  name: mock
`,
		},
		{
			name: "ollama with bad host",
			content: `
provider:
  name: ollama
  host: localhost:11434
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "")
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
