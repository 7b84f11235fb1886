package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/five82/honeywatch/internal/endpoint"
)

// EnvPrefix prefixes every environment override, e.g. HONEYWATCH_API_URL.
const EnvPrefix = "HONEYWATCH"

// Config holds everything honeywatch needs to reach and poll the collector.
type Config struct {
	// APIURL is the optional collector URL template; may contain ${HOST_IP}.
	APIURL string
	// HostIP replaces ${HOST_IP} and names the same-host candidate. Empty
	// uses the local hostname.
	HostIP         string
	Port           int
	PollInterval   time.Duration
	RequestTimeout time.Duration
	RecordLimit    int
	StickyEndpoint bool
	Backoff        bool
	BackoffMax     time.Duration
	StatusAddr     string
	LogFile        string
	LogLevel       string

	// Path is the config file that was consulted, whether or not it existed.
	Path string
}

const (
	defaultConfigPath     = "~/.config/honeywatch/config.toml"
	defaultLogFile        = "~/.local/state/honeywatch/honeywatch.log"
	defaultPollInterval   = 10 * time.Second
	defaultRequestTimeout = 5 * time.Second
	defaultBackoffMax     = 5 * time.Minute
)

// Default returns the configuration used when no file or overrides exist.
func Default() Config {
	return Config{
		Port:           endpoint.DefaultPort,
		PollInterval:   defaultPollInterval,
		RequestTimeout: defaultRequestTimeout,
		BackoffMax:     defaultBackoffMax,
		LogFile:        mustExpand(defaultLogFile),
		LogLevel:       "info",
	}
}

type fileConfig struct {
	APIURL         string `toml:"api_url"`
	HostIP         string `toml:"host_ip"`
	Port           *int   `toml:"port"`
	PollInterval   string `toml:"poll_interval"`
	RequestTimeout string `toml:"request_timeout"`
	RecordLimit    int    `toml:"record_limit"`
	StickyEndpoint bool   `toml:"sticky_endpoint"`
	Backoff        bool   `toml:"backoff"`
	BackoffMax     string `toml:"backoff_max"`
	StatusAddr     string `toml:"status_addr"`
	LogFile        string `toml:"log_file"`
	LogLevel       string `toml:"log_level"`
}

// Load reads the TOML config at path (default ~/.config/honeywatch/config.toml),
// falling back to defaults when the file is missing, then applies
// HONEYWATCH_* environment overrides and validates the result.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.Path = resolved

	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer func() { _ = file.Close() }()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var raw fileConfig
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := cfg.applyFile(raw); err != nil {
			return Config{}, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(raw fileConfig) error {
	c.APIURL = strings.TrimSpace(raw.APIURL)
	c.HostIP = strings.TrimSpace(raw.HostIP)
	if raw.Port != nil {
		c.Port = *raw.Port
	}
	if err := parseDurationInto(&c.PollInterval, "poll_interval", raw.PollInterval); err != nil {
		return err
	}
	if err := parseDurationInto(&c.RequestTimeout, "request_timeout", raw.RequestTimeout); err != nil {
		return err
	}
	if err := parseDurationInto(&c.BackoffMax, "backoff_max", raw.BackoffMax); err != nil {
		return err
	}
	c.RecordLimit = raw.RecordLimit
	c.StickyEndpoint = raw.StickyEndpoint
	c.Backoff = raw.Backoff
	c.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	if logFile := strings.TrimSpace(raw.LogFile); logFile != "" {
		c.LogFile = mustExpand(logFile)
	}
	if level := strings.TrimSpace(raw.LogLevel); level != "" {
		c.LogLevel = level
	}
	return nil
}

// applyEnv layers HONEYWATCH_* variables over the file values.
func (c *Config) applyEnv() error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{
		"api_url", "host_ip", "port", "poll_interval", "request_timeout", "record_limit",
		"sticky_endpoint", "backoff", "backoff_max", "status_addr", "log_file", "log_level",
	} {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if v.IsSet("api_url") {
		c.APIURL = strings.TrimSpace(v.GetString("api_url"))
	}
	if v.IsSet("host_ip") {
		c.HostIP = strings.TrimSpace(v.GetString("host_ip"))
	}
	if v.IsSet("port") {
		port, err := strconv.Atoi(strings.TrimSpace(v.GetString("port")))
		if err != nil {
			return fmt.Errorf("%s_PORT: %w", EnvPrefix, err)
		}
		c.Port = port
	}
	if v.IsSet("poll_interval") {
		if err := parseDurationInto(&c.PollInterval, EnvPrefix+"_POLL_INTERVAL", v.GetString("poll_interval")); err != nil {
			return err
		}
	}
	if v.IsSet("request_timeout") {
		if err := parseDurationInto(&c.RequestTimeout, EnvPrefix+"_REQUEST_TIMEOUT", v.GetString("request_timeout")); err != nil {
			return err
		}
	}
	if v.IsSet("record_limit") {
		limit, err := strconv.Atoi(strings.TrimSpace(v.GetString("record_limit")))
		if err != nil {
			return fmt.Errorf("%s_RECORD_LIMIT: %w", EnvPrefix, err)
		}
		c.RecordLimit = limit
	}
	if v.IsSet("sticky_endpoint") {
		sticky, err := strconv.ParseBool(strings.TrimSpace(v.GetString("sticky_endpoint")))
		if err != nil {
			return fmt.Errorf("%s_STICKY_ENDPOINT: %w", EnvPrefix, err)
		}
		c.StickyEndpoint = sticky
	}
	if v.IsSet("backoff") {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v.GetString("backoff")))
		if err != nil {
			return fmt.Errorf("%s_BACKOFF: %w", EnvPrefix, err)
		}
		c.Backoff = enabled
	}
	if v.IsSet("backoff_max") {
		if err := parseDurationInto(&c.BackoffMax, EnvPrefix+"_BACKOFF_MAX", v.GetString("backoff_max")); err != nil {
			return err
		}
	}
	if v.IsSet("status_addr") {
		c.StatusAddr = strings.TrimSpace(v.GetString("status_addr"))
	}
	if v.IsSet("log_file") {
		c.LogFile = mustExpand(v.GetString("log_file"))
	}
	if v.IsSet("log_level") {
		c.LogLevel = strings.TrimSpace(v.GetString("log_level"))
	}
	return nil
}

// Validate rejects values the poller cannot run with. A malformed api_url is
// not an error; the resolver skips it.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.RecordLimit < 0 {
		return fmt.Errorf("record_limit must not be negative, got %d", c.RecordLimit)
	}
	if c.Backoff && c.BackoffMax < c.PollInterval {
		return fmt.Errorf("backoff_max (%s) must be at least poll_interval (%s)", c.BackoffMax, c.PollInterval)
	}
	return nil
}

// Resolver captures the candidate inputs once so the poll loop never reads
// the environment.
func (c Config) Resolver() endpoint.Resolver {
	host := c.HostIP
	if host == "" {
		host = endpoint.DetectHostname()
	}
	return endpoint.Resolver{
		HostHint: host,
		Template: c.APIURL,
		Port:     c.Port,
	}
}

func parseDurationInto(dst *time.Duration, name, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*dst = d
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
