package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	cfgPath, dir := writeConfig(t, "google")
	t.Setenv("GEMINI_API_KEY", "sk-test-123")

	out, err := runCLI(t, &RootOptions{}, "--config", cfgPath, "config")
	require.NoError(t, err)

	assert.Contains(t, out, "db:")
	assert.Contains(t, out, dir)
	assert.Contains(t, out, "max_files: 10")
	assert.Contains(t, out, "gemini_api_key:")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "sk-test-123")
}

func TestConfigJSON(t *testing.T) {
	cfgPath, _ := writeConfig(t, "google")
	t.Setenv("GEMINI_API_KEY", "sk-test-123")

	out, err := runCLI(t, &RootOptions{}, "--config", cfgPath, "--format", "json", "config")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-test-123")

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	tts := data["tts"].(map[string]any)
	assert.Equal(t, "google", tts["provider"])
	assert.Equal(t, "********", tts["gemini_api_key"])
}

func TestConfigInvalidFile(t *testing.T) {
	_, err := runCLI(t, &RootOptions{}, "--config", "does-not-exist.yaml", "config")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
