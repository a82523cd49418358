// Package config loads the echo server configuration. Values are layered:
// built-in defaults, then an optional YAML file, then ECHO_* environment
// variables, then command-line flags and the positional listen address.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NetPo4ki/go-echo/echo"
)

const (
	DefaultAddr       = echo.DefaultAddr
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "console"
	DefaultBufferSize = echo.DefaultBufferSize
)

// Config holds all server settings.
type Config struct {
	// Server
	Addr           string        `yaml:"addr"`
	MaxConnections int           `yaml:"max_connections"`
	BufferSize     int           `yaml:"buffer_size"`
	AcceptBackoff  time.Duration `yaml:"accept_backoff"`

	// Observability
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

func Default() *Config {
	return &Config{
		Addr:       DefaultAddr,
		BufferSize: DefaultBufferSize,
		LogLevel:   DefaultLogLevel,
		LogFormat:  DefaultLogFormat,
	}
}

// Load builds the configuration for the given command-line arguments
// (without the program name). getenv is usually os.Getenv.
func Load(args []string, getenv func(string) string, stderr io.Writer) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	fs := flag.NewFlagSet("echo-server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: echo-server [flags] [address]\n\naddress defaults to %s\n\n", DefaultAddr)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", getenv("ECHO_CONFIG"), "path to a YAML config file")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address (disabled when empty)")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "", "log format: console or json")
	maxConns := fs.Int("max-connections", -1, "cap on concurrently served connections (0 = unbounded)")
	bufSize := fs.Int("buffer-size", 0, "relay chunk size in bytes")
	backoff := fs.Duration("accept-backoff", -1, "max delay between consecutive accept failures (0 = none)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("expected at most one address argument, got %d", fs.NArg())
	}

	if *configPath != "" {
		if err := cfg.loadFile(*configPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(getenv); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["metrics-addr"] {
		cfg.MetricsAddr = *metricsAddr
	}
	if set["log-level"] {
		cfg.LogLevel = *logLevel
	}
	if set["log-format"] {
		cfg.LogFormat = *logFormat
	}
	if set["max-connections"] {
		cfg.MaxConnections = *maxConns
	}
	if set["buffer-size"] {
		cfg.BufferSize = *bufSize
	}
	if set["accept-backoff"] {
		cfg.AcceptBackoff = *backoff
	}
	if fs.NArg() == 1 {
		cfg.Addr = fs.Arg(0)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv(getenv func(string) string) error {
	c.Addr = getEnv(getenv, "ECHO_ADDR", c.Addr)
	c.MetricsAddr = getEnv(getenv, "ECHO_METRICS_ADDR", c.MetricsAddr)
	c.LogLevel = getEnv(getenv, "ECHO_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv(getenv, "ECHO_LOG_FORMAT", c.LogFormat)

	var err error
	if c.MaxConnections, err = getEnvInt(getenv, "ECHO_MAX_CONNECTIONS", c.MaxConnections); err != nil {
		return err
	}
	if c.BufferSize, err = getEnvInt(getenv, "ECHO_BUFFER_SIZE", c.BufferSize); err != nil {
		return err
	}
	if c.AcceptBackoff, err = getEnvDuration(getenv, "ECHO_ACCEPT_BACKOFF", c.AcceptBackoff); err != nil {
		return err
	}
	return nil
}

// Validate checks values that would otherwise fail late. The listen address
// is only checked at bind time.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxConnections < 0 {
		errs = append(errs, fmt.Errorf("max_connections must be >= 0, got %d", c.MaxConnections))
	}
	if c.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("buffer_size must be > 0, got %d", c.BufferSize))
	}
	if c.AcceptBackoff < 0 {
		errs = append(errs, fmt.Errorf("accept_backoff must be >= 0, got %s", c.AcceptBackoff))
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			errs = append(errs, fmt.Errorf("metrics_addr: %w", err))
		}
	}
	return errors.Join(errs...)
}

func getEnv(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(getenv func(string) string, key string, fallback int) (int, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
