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

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, "warn")

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("shown %d", 3)
	l.Error("shown %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 3")
	assert.Contains(t, out, "[ERROR] shown 4")

	l.SetLevel(DEBUG)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "[DEBUG] now visible")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("DEBUG"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("chatty"))
	assert.Equal(t, "UNKNOWN", LogLevel(9).String())
}

func TestFileOutputWithJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "fitness.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	l, err := NewLogger(&LoggingConfig{Level: "info", Format: "json", Output: path, MaxSize: 1})
	require.NoError(t, err)
	l.Info("loaded generation %d", 3)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]string
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "loaded generation 3", entry["msg"])
}

func TestFileOutputMissingDirectory(t *testing.T) {
	_, err := NewLogger(&LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, "info")
	l.ProgressBar(5, 10, "runs", "ok")
	l.ProgressBar(10, 10, "runs", "ok")
	assert.Contains(t, buf.String(), "50%")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestDefaultLogger(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(NewWriterLogger(&buf, "info"))
	Default().Info("hello")
	assert.Contains(t, buf.String(), "hello")

	SetDefault(nil)
	assert.NotNil(t, Default())
}
