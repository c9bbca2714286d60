package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "debug", true)
	t.Cleanup(func() { logger.SetLogLevel(logger.InfoLevel) })

	log := logger.New("worker")
	log.Info().Int("frequency", 5).Msg("Frequency changed")

	out := buf.String()
	assert.Contains(t, out, "Frequency changed")
	assert.Contains(t, out, "component")
	assert.Contains(t, out, "worker")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "warning", true)
	t.Cleanup(func() { logger.SetLogLevel(logger.InfoLevel) })

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "info", true)
	t.Cleanup(func() { logger.SetLogLevel(logger.InfoLevel) })

	logger.New("sensor").ErrorWithCode(errors.New().New(errors.ErrSensorUnavailable)).Msg("sample failed")

	assert.Contains(t, buf.String(), "sensor_unavailable")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug":   logger.DebugLevel,
		"info":    logger.InfoLevel,
		"warning": logger.WarnLevel,
		"error":   logger.ErrorLevel,
		"bogus":   logger.InfoLevel,
	}

	for in, want := range tests {
		assert.Equal(t, want, logger.ParseLevel(in), in)
	}
}
