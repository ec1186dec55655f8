package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("create logger with console output", func(t *testing.T) {
		var out bytes.Buffer
		cfg := Config{
			Level:   "info",
			Console: true,
			Pretty:  false,
			Out:     &out,
		}

		logger, err := New(cfg)
		require.NoError(t, err)
		defer logger.Close()

		logger.Info().Str("port", "/dev/ttyUSB0").Msg("Serial port opened")
		assert.Contains(t, out.String(), `"port":"/dev/ttyUSB0"`)
		assert.Contains(t, out.String(), `"message":"Serial port opened"`)
	})

	t.Run("create logger with file output", func(t *testing.T) {
		tmpDir := t.TempDir()
		logFile := filepath.Join(tmpDir, "logs", "test.log")

		cfg := Config{
			Level:   "debug",
			File:    logFile,
			Console: false,
		}

		logger, err := New(cfg)
		require.NoError(t, err)

		logger.Info().Msg("test message")
		require.NoError(t, logger.Close())

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "test message")
	})

	t.Run("create logger with rotating file output", func(t *testing.T) {
		tmpDir := t.TempDir()
		logFile := filepath.Join(tmpDir, "test.log")

		cfg := Config{
			Level:   "info",
			File:    logFile,
			MaxSize: 1,
		}

		logger, err := New(cfg)
		require.NoError(t, err)

		_, ok := logger.file.(*RotatingWriter)
		assert.True(t, ok)

		logger.Info().Msg("rotating")
		require.NoError(t, logger.Close())

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "rotating")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		logger, err := New(Config{Level: "chatty"})
		require.NoError(t, err)
		defer logger.Close()

		assert.Equal(t, zerolog.InfoLevel, logger.GetZerolog().GetLevel())
	})

	t.Run("level filters output", func(t *testing.T) {
		var out bytes.Buffer
		logger, err := New(Config{Level: "warn", Console: true, Out: &out})
		require.NoError(t, err)
		defer logger.Close()

		logger.Info().Msg("hidden")
		logger.Warn().Msg("shown")

		assert.NotContains(t, out.String(), "hidden")
		assert.Contains(t, out.String(), "shown")
	})
}

func TestLoggerMethods(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	cfg := Config{
		Level:   "debug",
		File:    logFile,
		Console: false,
	}

	logger, err := New(cfg)
	require.NoError(t, err)
	defer logger.Close()

	t.Run("debug", func(t *testing.T) {
		event := logger.Debug()
		assert.NotNil(t, event)
		event.Msg("debug message")
	})

	t.Run("info", func(t *testing.T) {
		event := logger.Info()
		assert.NotNil(t, event)
		event.Msg("info message")
	})

	t.Run("warn", func(t *testing.T) {
		event := logger.Warn()
		assert.NotNil(t, event)
		event.Msg("warn message")
	})

	t.Run("error", func(t *testing.T) {
		event := logger.Error()
		assert.NotNil(t, event)
		event.Msg("error message")
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Pretty)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, 7, cfg.MaxAge)
	assert.True(t, cfg.Compress)
}

func TestComponent(t *testing.T) {
	var out bytes.Buffer
	logger, err := New(Config{Level: "info", Console: true, Out: &out})
	require.NoError(t, err)
	defer logger.Close()

	child := logger.Component("session")
	child.Info().Msg("hello")

	assert.Contains(t, out.String(), `"component":"session"`)
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Info().Msg("nothing")
	assert.NoError(t, logger.Close())
}
