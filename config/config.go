// Package config loads the download parameters from flags, environment and an optional yaml file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/WinPooh32/klinedump/download"
	"github.com/WinPooh32/klinedump/platform"
	"github.com/WinPooh32/klinedump/provider/binance"
	"github.com/WinPooh32/klinedump/provider/file"
)

const EnvPrefix = "KLINEDUMP"

const (
	SourceREST = "rest"
	SourceSDK  = "sdk"
	SourceFile = "file"
)

type Config struct {
	Symbol     string `mapstructure:"symbol"`
	Interval   string `mapstructure:"interval"`
	Start      string `mapstructure:"start"`
	End        string `mapstructure:"end"`
	BaseURL    string `mapstructure:"base-url"`
	Source     string `mapstructure:"source"`
	SourceFile string `mapstructure:"source-file"`
	OutputDir  string `mapstructure:"output-dir"`

	Limit              int           `mapstructure:"limit"`
	BatchSize          int           `mapstructure:"batch-size"`
	Buffer             int           `mapstructure:"buffer"`
	MinRequestInterval time.Duration `mapstructure:"min-request-interval"`
	HTTPTimeout        time.Duration `mapstructure:"http-timeout"`

	Progress bool   `mapstructure:"progress"`
	LogLevel string `mapstructure:"log-level"`
}

// SetDefaults registers every key so that env variables are seen by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("symbol", "BTCUSDT")
	v.SetDefault("interval", "1d")
	v.SetDefault("start", "2018-01-01")
	v.SetDefault("end", "2024-12-31")
	v.SetDefault("base-url", binance.DefaultBaseURL)
	v.SetDefault("source", SourceREST)
	v.SetDefault("source-file", "")
	v.SetDefault("output-dir", ".")
	v.SetDefault("limit", download.DefaultLimit)
	v.SetDefault("batch-size", platform.MaxBatchSize)
	v.SetDefault("buffer", download.DefaultBuffer)
	v.SetDefault("min-request-interval", download.DefaultMinRequestInterval)
	v.SetDefault("http-timeout", time.Duration(0))
	v.SetDefault("progress", true)
	v.SetDefault("log-level", "info")
}

// Load reads the optional config file and the environment into a validated Config.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Symbol == "":
		return &platform.ConfigError{Reason: "symbol is required"}
	case c.Source != SourceREST && c.Source != SourceSDK && c.Source != SourceFile:
		return &platform.ConfigError{Reason: fmt.Sprintf("unknown source %q", c.Source)}
	case c.Source == SourceFile && c.SourceFile == "":
		return &platform.ConfigError{Reason: "source-file is required by the file source"}
	case c.Limit <= 0 || c.Limit > 1000:
		return &platform.ConfigError{Reason: fmt.Sprintf("limit %d out of range 1..1000", c.Limit)}
	case c.BatchSize <= 0 || c.BatchSize > platform.MaxBatchSize:
		return &platform.ConfigError{Reason: fmt.Sprintf("batch-size %d out of range 1..%d", c.BatchSize, platform.MaxBatchSize)}
	case c.Buffer < 0:
		return &platform.ConfigError{Reason: "buffer must not be negative"}
	case c.MinRequestInterval < 0:
		return &platform.ConfigError{Reason: "min-request-interval must not be negative"}
	case c.HTTPTimeout < 0:
		return &platform.ConfigError{Reason: "http-timeout must not be negative"}
	}

	_, err := binance.ResolveWindow(c.Start, c.End, c.Interval)
	return err
}

// Options maps the config onto a download run. A zero min-request-interval turns the floor off.
func (c *Config) Options() download.Options {
	interval := c.MinRequestInterval
	if interval == 0 {
		interval = download.NoRequestInterval
	}

	return download.Options{
		Symbol:             strings.ToUpper(c.Symbol),
		Interval:           c.Interval,
		StartDate:          c.Start,
		EndDate:            c.End,
		OutputDir:          c.OutputDir,
		Limit:              c.Limit,
		BatchSize:          c.BatchSize,
		Buffer:             c.Buffer,
		MinRequestInterval: interval,
	}
}

// History builds the configured kline source.
func (c *Config) History() (platform.History, error) {
	switch c.Source {
	case SourceSDK:
		return binance.New(c.BaseURL, c.HTTPTimeout), nil
	case SourceFile:
		f, err := file.Open(c.SourceFile)
		if err != nil {
			return nil, &platform.ConfigError{Reason: "open source file", Err: err}
		}
		return f, nil
	default:
		return binance.NewHistory(c.BaseURL,
			binance.WithTimeout(c.HTTPTimeout),
			binance.WithDebug(strings.EqualFold(c.LogLevel, "debug")),
		), nil
	}
}
