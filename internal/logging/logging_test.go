package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New(Config{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestBacklite(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewBacklite(zap.New(core))

	l.Info("task processed", "queue", "import", "id", "t-1")
	l.Error("task failed", "queue", "export")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "task processed", entries[0].Message)
	assert.Equal(t, "tasks", entries[0].LoggerName)
	assert.Equal(t, "import", entries[0].ContextMap()["queue"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}
