package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/voicecalc/internal/config"
)

func seedHistory(t *testing.T, cfgPath string, entries ...[2]string) {
	t.Helper()
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	st, err := openStore(cfg)
	require.NoError(t, err)
	defer st.Close()
	for _, e := range entries {
		_, err := st.AddCalculation(context.Background(), e[0], e[1], false)
		require.NoError(t, err)
	}
}

func TestHistoryListEmpty(t *testing.T) {
	cfgPath, _ := writeConfig(t, "none")

	out, err := runCLI(t, &RootOptions{}, "--config", cfgPath, "--format", "json", "history", "list")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{}, data["history"])
}

func TestHistoryListLimit(t *testing.T) {
	cfgPath, _ := writeConfig(t, "none")
	seedHistory(t, cfgPath, [2]string{"1 + 1", "2"}, [2]string{"2 + 2", "4"}, [2]string{"3 + 3", "6"})

	out, err := runCLI(t, &RootOptions{}, "--config", cfgPath, "history", "list", "-n", "2")
	require.NoError(t, err)
	assert.Equal(t, "   3  3 + 3 = 6\n   2  2 + 2 = 4\n", out)

	_, err = runCLI(t, &RootOptions{}, "--config", cfgPath, "history", "list", "--limit", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistoryLast(t *testing.T) {
	cfgPath, _ := writeConfig(t, "none")

	out, err := runCLI(t, &RootOptions{}, "--config", cfgPath, "history", "last")
	require.NoError(t, err)
	assert.Equal(t, "No calculations yet\n", out)

	out, err = runCLI(t, &RootOptions{}, "--config", cfgPath, "--format", "json", "history", "last")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"calculation": ""}, decodeResponse(t, out).Data)

	seedHistory(t, cfgPath, [2]string{"9 * 9", "81"})

	out, err = runCLI(t, &RootOptions{}, "--config", cfgPath, "history", "last")
	require.NoError(t, err)
	assert.Equal(t, "81\n", out)
}

func TestHistoryDelete(t *testing.T) {
	cfgPath, _ := writeConfig(t, "none")
	seedHistory(t, cfgPath, [2]string{"1 + 1", "2"}, [2]string{"2 + 2", "4"})

	out, err := runCLI(t, &RootOptions{}, "--config", cfgPath, "history", "delete", "1")
	require.NoError(t, err)
	assert.Equal(t, "Deleted calculation 1\n", out)

	out, err = runCLI(t, &RootOptions{}, "--config", cfgPath, "history", "delete", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]: calculation 1 not found")

	_, err = runCLI(t, &RootOptions{}, "--config", cfgPath, "history", "delete", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err = runCLI(t, &RootOptions{}, "--config", cfgPath, "history", "list")
	require.NoError(t, err)
	assert.Equal(t, "   2  2 + 2 = 4\n", out)
}

func TestHistoryClear(t *testing.T) {
	cfgPath, _ := writeConfig(t, "none")
	seedHistory(t, cfgPath, [2]string{"1 + 1", "2"}, [2]string{"2 + 2", "4"})

	out, err := runCLI(t, &RootOptions{}, "--config", cfgPath, "--format", "json", "history", "clear")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"deleted": float64(2)}, decodeResponse(t, out).Data)

	out, err = runCLI(t, &RootOptions{}, "--config", cfgPath, "history", "list")
	require.NoError(t, err)
	assert.Empty(t, out)
}
