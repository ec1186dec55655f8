package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.yaml")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.yaml", loader.configPath)
	assert.Equal(t, "/path/to/config.yaml", loader.GetConfigPath())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("defaults without config file", func(t *testing.T) {
		cfg, err := NewLoader("").Load()

		require.NoError(t, err)
		assert.Equal(t, 10*time.Millisecond, cfg.Serial.ReadTimeout)
		assert.Equal(t, 1024, cfg.Serial.BufferSize)
		assert.Equal(t, "ws://localhost:5000/rx", cfg.Mirror.URL)
		assert.True(t, cfg.Mirror.Enabled)
		assert.Empty(t, cfg.Serial.Port)
		assert.Empty(t, cfg.Sentinel.Begin)
	})

	t.Run("missing config file is an error", func(t *testing.T) {
		tmpDir := t.TempDir()

		_, err := NewLoader(filepath.Join(tmpDir, "nonexistent.json")).Load()
		assert.Error(t, err)
	})

	t.Run("load config from json file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")

		testConfig := `{
			"serial": {"port": "/dev/ttyACM0", "baud": 115200, "read_timeout": "25ms"},
			"output": {"dir": "/var/log/capture"},
			"sentinel": {"begin": "BEGIN", "end": "END"},
			"mirror": {"enabled": false}
		}`
		err := os.WriteFile(configPath, []byte(testConfig), 0644)
		require.NoError(t, err)

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
		assert.Equal(t, 115200, cfg.Serial.Baud)
		assert.Equal(t, 25*time.Millisecond, cfg.Serial.ReadTimeout)
		assert.Equal(t, "/var/log/capture", cfg.Output.Dir)
		assert.Equal(t, "BEGIN", cfg.Sentinel.Begin)
		assert.Equal(t, "END", cfg.Sentinel.End)
		assert.False(t, cfg.Mirror.Enabled)
		assert.Equal(t, 1024, cfg.Serial.BufferSize)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("load config from yaml file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")

		testConfig := "serial:\n  port: COM4\n  baud: 9600\noutput:\n  dir: logs\nsentinel:\n  begin: start\n  end: stop\n"
		err := os.WriteFile(configPath, []byte(testConfig), 0644)
		require.NoError(t, err)

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "COM4", cfg.Serial.Port)
		assert.Equal(t, 9600, cfg.Serial.Baud)
		assert.Equal(t, "start", cfg.Sentinel.Begin)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")

		err := os.WriteFile(configPath, []byte(`{"serial": {"port": "/dev/ttyS0", "baud": 9600}}`), 0644)
		require.NoError(t, err)

		t.Setenv("SERIALLOG_SERIAL_BAUD", "57600")
		t.Setenv("SERIALLOG_SENTINEL_BEGIN", "GO")

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "/dev/ttyS0", cfg.Serial.Port)
		assert.Equal(t, 57600, cfg.Serial.Baud)
		assert.Equal(t, "GO", cfg.Sentinel.Begin)
	})

	t.Run("changed flags override environment", func(t *testing.T) {
		t.Setenv("SERIALLOG_SERIAL_PORT", "/dev/from-env")
		t.Setenv("SERIALLOG_OUTPUT_DIR", "/data/env")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("port", "", "")
		flags.Int("baud", 0, "")
		flags.String("out", "", "")
		require.NoError(t, flags.Parse([]string{"--port", "/dev/from-flag", "--baud", "19200"}))

		cfg, err := NewLoader("").WithFlags(flags).Load()

		require.NoError(t, err)
		assert.Equal(t, "/dev/from-flag", cfg.Serial.Port)
		assert.Equal(t, 19200, cfg.Serial.Baud)
		// Unchanged flag does not shadow the environment
		assert.Equal(t, "/data/env", cfg.Output.Dir)
	})
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
}
