package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T, level, format string) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	prevLevel := GetLevel()
	prevFormat, _ := currentFormat.Load().(string)

	mu.RLock()
	prevOut := output
	mu.RUnlock()

	InitWithWriter(buf, level, format)
	t.Cleanup(func() {
		InitWithWriter(prevOut, prevLevel.String(), prevFormat)
	})
	return buf
}

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf := captureOutput(t, "DEBUG", "text")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.Contains(t, out, "debug message")
		assert.Contains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("WarnLevelHidesDebugAndInfo", func(t *testing.T) {
		buf := captureOutput(t, "WARN", "text")

		Debug("debug message")
		Info("info message")
		Warn("warn message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
	})

	t.Run("ErrorAlwaysLogs", func(t *testing.T) {
		buf := captureOutput(t, "ERROR", "text")
		Warn("quiet")
		Error("loud")
		assert.NotContains(t, buf.String(), "quiet")
		assert.Contains(t, buf.String(), "loud")
	})
}

func TestSetLevelIgnoresUnknown(t *testing.T) {
	captureOutput(t, "INFO", "text")
	SetLevel("verbose")
	assert.Equal(t, LevelInfo, GetLevel())
	SetLevel("debug")
	assert.Equal(t, LevelDebug, GetLevel())
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t, "INFO", "json")

	Info("type materialized", KeyType, "Node", KeyBytes, 12)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "type materialized", rec["msg"])
	assert.Equal(t, "Node", rec[KeyType])
	assert.EqualValues(t, 12, rec[KeyBytes])
}

func TestSetFormatIgnoresUnknown(t *testing.T) {
	buf := captureOutput(t, "INFO", "text")
	SetFormat("xml")
	Info("still text")
	assert.True(t, strings.Contains(buf.String(), "msg=\"still text\""))
}

func TestWith(t *testing.T) {
	buf := captureOutput(t, "INFO", "text")
	With(KeyCommand, "encode").Info("done")
	assert.Contains(t, buf.String(), "command=encode")
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}
