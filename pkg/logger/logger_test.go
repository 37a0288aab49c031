package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestInfow_KeepsMessageAndStructuredFields(t *testing.T) {
	log, logs := observedLogger()

	log.Infow("Context activated", "context", "match:42", "interval", time.Minute)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Context activated", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "match:42", fields["context"])
	assert.Equal(t, time.Minute, fields["interval"])
}

func TestErrorw_KeepsMessageAndStructuredFields(t *testing.T) {
	log, logs := observedLogger()

	log.Errorw("Tick failed", "context", "club:arsenal", "error", "timeout")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "Tick failed", entries[0].Message)
	assert.Equal(t, "club:arsenal", entries[0].ContextMap()["context"])
}

func TestWith_ChildCarriesFields(t *testing.T) {
	log, logs := observedLogger()

	log.With("run_id", "abc123").Infow("Ingestion pass complete", "posts", 7)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc123", fields["run_id"])
	assert.Equal(t, int64(7), fields["posts"])
}
