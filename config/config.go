// Package config loads scholar-metrics configuration from defaults, an
// optional config file, a .env file and SCHOLARMETRICS_ environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sent-hil/scholar-metrics/charts"
	"github.com/sent-hil/scholar-metrics/logging"
	"github.com/sent-hil/scholar-metrics/render"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "SCHOLARMETRICS"

// Config is the complete application configuration.
type Config struct {
	Data    DataConfig    `mapstructure:"data"`
	Site    SiteConfig    `mapstructure:"site"`
	Charts  ChartsConfig  `mapstructure:"charts"`
	Render  RenderConfig  `mapstructure:"render"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// DataConfig locates the metrics document.
type DataConfig struct {
	// Path is a file path under Root, an http(s) URL, a path relative to
	// BaseURL, or sqlite://<file>.
	Path    string        `mapstructure:"path"`
	Root    string        `mapstructure:"root"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SiteConfig controls the host page.
type SiteConfig struct {
	Title       string `mapstructure:"title"`
	Locale      string `mapstructure:"locale"`
	Template    string `mapstructure:"template"`
	Intro       string `mapstructure:"intro"`
	DefaultSort string `mapstructure:"default_sort"`
}

// ChartsConfig selects the chart backend.
type ChartsConfig struct {
	Backend string `mapstructure:"backend"`
	Width   int    `mapstructure:"width"`
	Height  int    `mapstructure:"height"`
}

// RenderConfig controls the render command.
type RenderConfig struct {
	Output string `mapstructure:"output"`
}

// ServerConfig controls the UI server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Address returns host:port for the UI server.
func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Logger converts the logging section for logging.NewLogger.
func (c *LoggingConfig) Logger() logging.Config {
	return logging.Config{Level: c.Level, Format: c.Format, Output: c.Output}
}

// Load reads configuration. When path is empty, config.yaml is looked up in
// the working directory and ./config and may be absent.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.path", "data/metrics.json")
	v.SetDefault("data.root", ".")
	v.SetDefault("data.base_url", "")
	v.SetDefault("data.timeout", "30s")

	v.SetDefault("site.title", "Publication Metrics")
	v.SetDefault("site.locale", "en-US")
	v.SetDefault("site.template", "")
	v.SetDefault("site.intro", "")
	v.SetDefault("site.default_sort", string(render.CitationsDesc))

	v.SetDefault("charts.backend", charts.BackendChartJS)
	v.SetDefault("charts.width", charts.DefaultWidth)
	v.SetDefault("charts.height", charts.DefaultHeight)

	v.SetDefault("render.output", "index.html")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 9001)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Data.Path == "" {
		errs = append(errs, errors.New("data.path is required"))
	}

	switch c.Charts.Backend {
	case charts.BackendChartJS, charts.BackendImage:
	default:
		errs = append(errs, fmt.Errorf("charts.backend must be %q or %q, got %q",
			charts.BackendChartJS, charts.BackendImage, c.Charts.Backend))
	}
	if c.Charts.Width <= 0 || c.Charts.Height <= 0 {
		errs = append(errs, fmt.Errorf("charts.width and charts.height must be positive, got %dx%d",
			c.Charts.Width, c.Charts.Height))
	}

	if !render.IsSortMode(c.Site.DefaultSort) {
		errs = append(errs, fmt.Errorf("site.default_sort %q is not a sort mode", c.Site.DefaultSort))
	}
	if _, err := render.NewLocale(c.Site.Locale); err != nil {
		errs = append(errs, fmt.Errorf("site.locale: %w", err))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path))
	}

	return errors.Join(errs...)
}
