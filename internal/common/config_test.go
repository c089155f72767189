package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFromFiles_Defaults(t *testing.T) {
	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 8085, config.Server.Port)
	assert.Equal(t, "2s", config.Poller.Interval)
	assert.Equal(t, []string{"local", "claude", "gemini"}, config.LLM.ProviderOrder)
	assert.Equal(t, 50, config.Jobs.DefaultLimit)
	assert.Equal(t, 4, config.Jobs.PageConcurrency)
}

func TestLoadFromFiles_LaterFileOverrides(t *testing.T) {
	base := writeConfig(t, "base.toml", `
[server]
port = 9000

[jobs]
default_limit = 10
`)
	override := writeConfig(t, "override.toml", `
[jobs]
default_limit = 20

[llm]
provider_order = ["gemini"]
`)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, 20, config.Jobs.DefaultLimit)
	assert.Equal(t, []string{"gemini"}, config.LLM.ProviderOrder)
}

func TestLoadFromFiles_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "adscope.toml", `
[apify]
token = "from-file"
`)
	t.Setenv("APIFY_API_TOKEN", "from-env")
	t.Setenv("ADSCOPE_SERVER_PORT", "9191")

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", config.Apify.Token)
	assert.Equal(t, 9191, config.Server.Port)
}

func TestLoadFromFiles_RejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, "bad.toml", `
[llm]
provider_order = ["local", "mystery"]
`)

	_, err := LoadFromFiles(path)
	assert.Error(t, err)
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 3*time.Second, ParseDuration("3s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("soon", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("-1s", time.Minute))
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 8085, config.Server.Port)

	ApplyFlagOverrides(config, 7000, "0.0.0.0")
	assert.Equal(t, 7000, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}
