package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/liberty-tools/liberty-lsp/internal/quickfix"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultServerID = "jakarta"
	DefaultLogLevel = "info"
)

// Environment variables overriding the config file
const (
	EnvRemote       = "LIBERTY_LSP_REMOTE"
	EnvServerID     = "LIBERTY_LSP_SERVER_ID"
	EnvFetchTimeout = "LIBERTY_LSP_FETCH_TIMEOUT"
	EnvFixSource    = "LIBERTY_LSP_FIX_SOURCE"
	EnvLogLevel     = "LIBERTY_LSP_LOG_LEVEL"
	EnvTrace        = "LIBERTY_LSP_TRACE"
)

// Duration is a time.Duration written as a string such as "750ms"
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the runtime configuration of the language server
type Config struct {
	// Remote is the address of the analysis server, empty for local fixes only
	Remote string `toml:"remote"`
	// ServerID keys the markers this server renders
	ServerID     string   `toml:"server_id"`
	FetchTimeout Duration `toml:"fetch_timeout"`
	FixSource    string   `toml:"fix_source"`
	LogLevel     string   `toml:"log_level"`
	Trace        bool     `toml:"trace"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ServerID:     DefaultServerID,
		FetchTimeout: Duration(quickfix.DefaultFetchTimeout),
		FixSource:    string(quickfix.SourceAuto),
		LogLevel:     DefaultLogLevel,
	}
}

// Load reads the config file at path, when path is not empty, and applies
// the environment on top of it. A .env file in the working directory is
// loaded first; variables already set win over it.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}

	if v, ok := get(EnvRemote); ok {
		c.Remote = v
	}
	if v, ok := get(EnvServerID); ok {
		c.ServerID = v
	}
	if v, ok := get(EnvFetchTimeout); ok {
		if err := c.FetchTimeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvFetchTimeout, err)
		}
	}
	if v, ok := get(EnvFixSource); ok {
		c.FixSource = v
	}
	if v, ok := get(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := get(EnvTrace); ok {
		trace, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTrace, err)
		}
		c.Trace = trace
	}
	return nil
}

// Validate checks the values that cannot be defaulted
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ServerID) == "" {
		errs = append(errs, errors.New("server_id must not be empty"))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch_timeout must be positive, got %s", time.Duration(c.FetchTimeout)))
	}
	if _, err := quickfix.ParseSource(c.FixSource); err != nil {
		errs = append(errs, err)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log_level: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Timeout returns the remote fix fetch timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.FetchTimeout)
}

// Source returns the parsed fix source policy
func (c *Config) Source() quickfix.Source {
	source, err := quickfix.ParseSource(c.FixSource)
	if err != nil {
		return quickfix.SourceAuto
	}
	return source
}

// Level returns the parsed log level
func (c *Config) Level() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}
