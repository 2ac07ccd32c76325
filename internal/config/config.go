// Runtime configuration for the tabby-mcp daemon and CLI.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure for the entire application.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	DevTools DevToolsConfig `mapstructure:"devtools"`
}

// ColorConfig defines the color settings for different log levels.
// These are used for console output to make logs more readable.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" json:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" json:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" json:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" json:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" json:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" json:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" json:"fatal" yaml:"fatal"`
}

// LoggerConfig holds all the configuration for the logger.
// This is the single source of truth for this struct.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" json:"level" yaml:"level"`
	Format      string      `mapstructure:"format" json:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" json:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" json:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" json:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" json:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" json:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" json:"colors" yaml:"colors"`
}

// DevToolsConfig holds settings for reaching Tabby's remote debugging
// endpoint. Port is the one knob most installs ever need to touch.
type DevToolsConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	EvalTimeout time.Duration `mapstructure:"eval_timeout"`
}

// Endpoint returns the base HTTP URL of the remote debugging endpoint.
func (c DevToolsConfig) Endpoint() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// SetDefaults registers the baseline values on v so a bare install works
// against a local Tabby started with remote debugging on the stock port.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("devtools.host", "127.0.0.1")
	v.SetDefault("devtools.port", 9222)
	v.SetDefault("devtools.http_timeout", 5*time.Second)
	v.SetDefault("devtools.eval_timeout", 30*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "tabby-mcp")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "red")
	v.SetDefault("logger.colors.panic", "red")
	v.SetDefault("logger.colors.fatal", "red")
}

// Load unmarshals the configuration assembled in v into a fresh Config.
// Callers hand the result to the components that need it; there is no
// package level instance to reach for.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configurations the daemon could not run with.
func (c *Config) Validate() error {
	if c.DevTools.Host == "" {
		return fmt.Errorf("devtools.host must not be empty")
	}
	if c.DevTools.Port < 1 || c.DevTools.Port > 65535 {
		return fmt.Errorf("devtools.port must be between 1 and 65535, got %d", c.DevTools.Port)
	}
	if c.DevTools.HTTPTimeout <= 0 {
		return fmt.Errorf("devtools.http_timeout must be positive")
	}
	if c.DevTools.EvalTimeout <= 0 {
		return fmt.Errorf("devtools.eval_timeout must be positive")
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be \"console\" or \"json\", got %q", c.Logger.Format)
	}
	return nil
}
