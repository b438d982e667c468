package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TerminalOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Terminal: &buf})
	require.NoError(t, err)
	defer logger.Close()

	logger.Debug("hidden")
	logger.Info("persona switch loaded", "is_switch_on", true)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "is_switch_on=true")
}

func TestNew_Verbose(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Terminal: &buf, Verbose: true})
	require.NoError(t, err)

	logger.Debug("toggle dropped")
	assert.Contains(t, buf.String(), "level=DEBUG")

	logger.SetLevel(slog.LevelError)
	logger.Warn("ignored")
	assert.NotContains(t, buf.String(), "ignored")
}

func TestNew_FanoutToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "dualfolio.log")

	logger, err := New(Options{Terminal: &buf, File: path})
	require.NoError(t, err)

	logger.Warn("stored persona switch is unreadable, using default", "key", "isSwitchOn")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close(), "close is idempotent")

	assert.Contains(t, buf.String(), "stored persona switch is unreadable")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "isSwitchOn", record["key"])
}
