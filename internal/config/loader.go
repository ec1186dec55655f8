package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SERIALLOG_SERIAL_PORT
const EnvPrefix = "SERIALLOG"

// FlagKeys maps command-line flag names to configuration keys
var FlagKeys = map[string]string{
	"port":              "serial.port",
	"baud":              "serial.baud",
	"read-timeout":      "serial.read_timeout",
	"out":               "output.dir",
	"begin":             "sentinel.begin",
	"end":               "sentinel.end",
	"mirror-url":        "mirror.url",
	"metrics-addr":      "metrics.addr",
	"echo":              "echo",
	"log-level":         "logging.level",
	"log-file":          "logging.file",
	"handshake-timeout": "mirror.handshake_timeout",
	"buffer-size":       "serial.buffer_size",
}

// Loader handles configuration loading
type Loader struct {
	configPath string
	flags      *pflag.FlagSet
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// WithFlags binds the flags listed in FlagKeys as the highest-precedence source
func (l *Loader) WithFlags(flags *pflag.FlagSet) *Loader {
	l.flags = flags
	return l
}

// Load merges defaults, the optional config file, SERIALLOG_* environment
// variables and bound flags, in increasing order of precedence.
func (l *Loader) Load() (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	// Read environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if l.configPath != "" {
		if _, err := os.Stat(l.configPath); err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		v.SetConfigFile(l.configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind flags
	if l.flags != nil {
		for name, key := range FlagKeys {
			flag := l.flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	// Unmarshal into config struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	return l.configPath
}

// setDefaults registers every key so environment overrides apply even
// without a config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("serial.port", cfg.Serial.Port)
	v.SetDefault("serial.baud", cfg.Serial.Baud)
	v.SetDefault("serial.read_timeout", cfg.Serial.ReadTimeout)
	v.SetDefault("serial.buffer_size", cfg.Serial.BufferSize)
	v.SetDefault("output.dir", cfg.Output.Dir)
	v.SetDefault("sentinel.begin", cfg.Sentinel.Begin)
	v.SetDefault("sentinel.end", cfg.Sentinel.End)
	v.SetDefault("mirror.enabled", cfg.Mirror.Enabled)
	v.SetDefault("mirror.url", cfg.Mirror.URL)
	v.SetDefault("mirror.handshake_timeout", cfg.Mirror.HandshakeTimeout)
	v.SetDefault("mirror.write_timeout", cfg.Mirror.WriteTimeout)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.pretty", cfg.Logging.Pretty)
	v.SetDefault("logging.max_size", cfg.Logging.MaxSize)
	v.SetDefault("logging.max_age", cfg.Logging.MaxAge)
	v.SetDefault("logging.compress", cfg.Logging.Compress)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
	v.SetDefault("echo", cfg.Echo)
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
