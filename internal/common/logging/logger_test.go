package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level LogLevel) (Logger, *bytes.Buffer) {
	t.Helper()

	buf := &bytes.Buffer{}
	logger, err := NewZapLogger(LogConfig{Level: level, Output: buf})
	require.NoError(t, err)
	return logger, buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"WARNING", WarnLevel},
		{"ERROR", ErrorLevel},
		{"garbage", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "ParseLevel(%q)", tt.input)
	}
}

func TestZapLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(t, WarnLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
}

func TestZapLogger_Fields(t *testing.T) {
	logger, buf := newBufferLogger(t, InfoLevel)

	logger.Info("executing pipeline",
		String("pipeline_id", "pipe_1"),
		Int("steps", 3),
	)

	output := buf.String()
	assert.Contains(t, output, "executing pipeline")
	assert.Contains(t, output, "pipe_1")
}

func TestZapLogger_WithFields(t *testing.T) {
	logger, buf := newBufferLogger(t, InfoLevel)

	child := logger.WithFields(String("component", "importer"))
	child.Info("parsed document")

	assert.Contains(t, buf.String(), "importer")
}

func TestZapLogger_ErrorIncludesCause(t *testing.T) {
	logger, buf := newBufferLogger(t, InfoLevel)

	logger.Error("step failed", assert.AnError, String("step_id", "s1"))

	output := buf.String()
	assert.Contains(t, output, "step failed")
	assert.True(t, strings.Contains(output, assert.AnError.Error()))
}
