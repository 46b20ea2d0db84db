// Package config handles client configuration using Viper: defaults, an
// optional YAML file and AMSAB_* environment overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mastershashi/llm-engineering-usecases/internal/channel"
	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
	"github.com/mastershashi/llm-engineering-usecases/internal/telemetry"
	"github.com/mastershashi/llm-engineering-usecases/internal/version"
)

// EnvPrefix prefixes every environment override, e.g. AMSAB_SERVER_URL.
const EnvPrefix = "AMSAB"

// Config holds the client configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts" yaml:"timeouts"`
	Channel   ChannelConfig   `mapstructure:"channel" yaml:"channel"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

// ServerConfig locates the engine.
type ServerConfig struct {
	URL       string `mapstructure:"url" yaml:"url"`
	APIPrefix string `mapstructure:"api_prefix" yaml:"api_prefix"`
	WSPrefix  string `mapstructure:"ws_prefix" yaml:"ws_prefix"`
	Token     string `mapstructure:"token" yaml:"token"`
}

// TimeoutsConfig bounds network operations.
type TimeoutsConfig struct {
	Request time.Duration `mapstructure:"request" yaml:"request"`
}

// ChannelConfig tunes the event channel. Defaults are the protocol
// constants.
type ChannelConfig struct {
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay" yaml:"reconnect_delay"`
	KeepaliveInterval time.Duration `mapstructure:"keepalive_interval" yaml:"keepalive_interval"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the local probe server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// TelemetryConfig controls OTLP trace export.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// DefaultPath returns ~/.amsab/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".amsab", "config.yaml"), nil
}

// Load reads configuration from file and environment. A missing default
// config file is not an error; a missing explicit one is.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure paths
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigRead, "config file not readable", err)
		}
		v.SetConfigFile(configPath)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".amsab"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(errors.ErrCodeConfigRead, "failed to read config", err).
				WithSuggestion("Check the YAML syntax or run 'amsab config init' to write a fresh file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigRead, "failed to decode config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:8000")
	v.SetDefault("server.api_prefix", "/api")
	v.SetDefault("server.ws_prefix", "/ws/plans")
	v.SetDefault("server.token", "")
	v.SetDefault("timeouts.request", "3m")
	v.SetDefault("channel.reconnect_delay", channel.DefaultReconnectDelay.String())
	v.SetDefault("channel.keepalive_interval", channel.DefaultKeepaliveInterval.String())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.sample_rate", 1.0)
}

// Validate checks the server URL and durations.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New(errors.ErrCodeConfigInvalidURL,
			fmt.Sprintf("server.url %q is not an http(s) URL", c.Server.URL)).
			WithField("server.url").
			WithSuggestion("Set AMSAB_SERVER_URL=http://localhost:8000 or edit ~/.amsab/config.yaml")
	}
	if c.Timeouts.Request <= 0 {
		return errors.New(errors.ErrCodeConfigRead, "timeouts.request must be positive").
			WithField("timeouts.request")
	}
	return nil
}

// APIBaseURL is the REST root, e.g. http://localhost:8000/api.
func (c *Config) APIBaseURL() string {
	return strings.TrimRight(c.Server.URL, "/") + c.Server.APIPrefix
}

// WebsocketURL is the event channel endpoint for planID. http maps to ws
// and https to wss.
func (c *Config) WebsocketURL(planID string) string {
	base := strings.TrimRight(c.Server.URL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + strings.TrimRight(c.Server.WSPrefix, "/") + "/" + url.PathEscape(planID)
}

// TracerConfig converts to the tracer configuration.
func (c *Config) TracerConfig() telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceVersion = version.Version
	tc.Enabled = c.Telemetry.Enabled
	tc.Endpoint = c.Telemetry.Endpoint
	tc.Insecure = c.Telemetry.Insecure
	if c.Telemetry.SampleRate > 0 {
		tc.SampleRate = c.Telemetry.SampleRate
	}
	return tc
}

// Save writes the configuration to path as YAML.
func Save(cfg *Config, path string) error {
	v := viper.New()

	v.Set("server.url", cfg.Server.URL)
	v.Set("server.api_prefix", cfg.Server.APIPrefix)
	v.Set("server.ws_prefix", cfg.Server.WSPrefix)
	v.Set("server.token", cfg.Server.Token)
	v.Set("timeouts.request", cfg.Timeouts.Request.String())
	v.Set("channel.reconnect_delay", cfg.Channel.ReconnectDelay.String())
	v.Set("channel.keepalive_interval", cfg.Channel.KeepaliveInterval.String())
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("metrics.addr", cfg.Metrics.Addr)
	v.Set("telemetry.enabled", cfg.Telemetry.Enabled)
	v.Set("telemetry.endpoint", cfg.Telemetry.Endpoint)
	v.Set("telemetry.insecure", cfg.Telemetry.Insecure)
	v.Set("telemetry.sample_rate", cfg.Telemetry.SampleRate)

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeConfigWrite, "failed to create config directory", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return errors.Wrap(errors.ErrCodeConfigWrite, "failed to write config", err)
	}
	return nil
}
