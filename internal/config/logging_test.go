package config

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

func TestDualLoggerWritesBothFormats(t *testing.T) {
	var text, structured bytes.Buffer
	log := dualLogger(&text, &structured, slog.LevelInfo)

	log.Info("crawl started", "job_id", "j1")

	assert.Contains(t, text.String(), "crawl started")

	var record map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &record))
	assert.Equal(t, "crawl started", record["msg"])
	assert.Equal(t, "j1", record["job_id"])
}

func TestDualLoggerRespectsLevel(t *testing.T) {
	var text, structured bytes.Buffer
	log := dualLogger(&text, &structured, slog.LevelWarn)

	log.Debug("noise")
	log.Info("still noise")

	assert.Empty(t, text.String())
	assert.Empty(t, structured.String())
}

func TestNewLoggerFallsBackWithoutFile(t *testing.T) {
	// A directory path cannot be opened as a file.
	log, cleanup := NewLogger(t.TempDir(), slog.LevelInfo)
	require.NotNil(t, log)
	require.NoError(t, cleanup())
}

func TestNewLoggerAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "askdocs.log")
	log, cleanup := NewLogger(path, slog.LevelInfo)
	log.Info("hello")
	require.NoError(t, cleanup())

	// Reopening appends rather than truncating.
	log, cleanup = NewLogger(path, slog.LevelInfo)
	log.Info("again")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Count(strings.TrimSpace(string(data)), "\n") + 1
	assert.Equal(t, 2, lines)
}
