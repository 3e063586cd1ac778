package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, "info", "production")

	l.Info("credited", "uid", "u1", "points", 100)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "credited", entry["msg"])
	assert.Equal(t, "u1", entry["uid"])
}

func TestSetup_DevelopmentWritesText(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, "debug", "development")

	l.Debug("watch attached", "uid", "u1")

	assert.True(t, strings.Contains(buf.String(), "msg=\"watch attached\""))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
