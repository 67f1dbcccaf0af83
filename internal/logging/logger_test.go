package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesToFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	require.NoError(t, err)

	logger.WithComponent("store").WithCaller("u1").WithTask("T1").Info("task updated", "row_version", 4)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "task updated", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "store", entry["component"])
	assert.Equal(t, "u1", entry["caller_id"])
	assert.Equal(t, "T1", entry["task_id"])
	assert.EqualValues(t, 4, entry["row_version"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "shown")
}

func TestCloseIsIdempotent(t *testing.T) {
	logger, err := NewLogger(t.TempDir(), LevelInfo)
	require.NoError(t, err)

	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
	require.NoError(t, NopLogger().Close())
}

func TestValidLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "Warn", "ERROR"} {
		assert.True(t, ValidLevel(lvl), lvl)
	}
	assert.False(t, ValidLevel("trace"))
}
