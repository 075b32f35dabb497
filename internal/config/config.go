package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tanq16/segdl/internal/utils"
)

const EnvPrefix = "SEGDL"

// Config holds every tunable of the CLI. Values come from defaults, an
// optional YAML file, SEGDL_* environment variables and flags, in increasing
// order of precedence.
type Config struct {
	Segments             int           `mapstructure:"segments"`
	Workers              int           `mapstructure:"workers"`
	Retries              int           `mapstructure:"retries"`
	Timeout              time.Duration `mapstructure:"timeout"`
	KeepAliveTimeout     time.Duration `mapstructure:"keep_alive_timeout"`
	UserAgent            string        `mapstructure:"user_agent"`
	Proxy                string        `mapstructure:"proxy"`
	ProxyUsername        string        `mapstructure:"proxy_username"`
	ProxyPassword        string        `mapstructure:"proxy_password"`
	Headers              []string      `mapstructure:"headers"`
	OutputDir            string        `mapstructure:"output_dir"`
	Format               string        `mapstructure:"format"`
	Resolver             string        `mapstructure:"resolver"`
	YtdlpPath            string        `mapstructure:"ytdlp_path"`
	S3Profile            string        `mapstructure:"s3_profile"`
	SingleStreamFallback bool          `mapstructure:"single_stream_fallback"`
	HistoryDB            string        `mapstructure:"history_db"`
	LogFile              string        `mapstructure:"log_file"`
	Debug                bool          `mapstructure:"debug"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("segments", utils.DefaultSegments)
	v.SetDefault("workers", 1)
	v.SetDefault("retries", 0)
	v.SetDefault("timeout", "3m")
	v.SetDefault("keep_alive_timeout", "90s")
	v.SetDefault("user_agent", utils.ToolUserAgent)
	v.SetDefault("proxy", "")
	v.SetDefault("proxy_username", "")
	v.SetDefault("proxy_password", "")
	v.SetDefault("headers", []string{})
	v.SetDefault("output_dir", ".")
	v.SetDefault("format", "best")
	v.SetDefault("resolver", "")
	v.SetDefault("ytdlp_path", "")
	v.SetDefault("s3_profile", "")
	v.SetDefault("single_stream_fallback", false)
	v.SetDefault("history_db", DefaultHistoryPath())
	v.SetDefault("log_file", "")
	v.SetDefault("debug", false)
}

// DefaultHistoryPath places the history database in the user config dir.
func DefaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".segdl-history.db"
	}
	return filepath.Join(dir, "segdl", "history.db")
}

func defaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "segdl", "config.yaml")
}

// Load reads configuration into v. An explicit configFile must exist; the
// default location is optional.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if def := defaultConfigFile(); def != "" {
		if _, err := os.Stat(def); err == nil {
			v.SetConfigFile(def)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
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

func (c *Config) Validate() error {
	if c.Segments <= 0 {
		return errors.New("segments must be positive")
	}
	if c.Segments > 64 {
		return errors.New("segments must be at most 64")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if c.Retries < 0 {
		return errors.New("retries cannot be negative")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	switch c.Resolver {
	case "", "video", "direct", "s3":
	default:
		return fmt.Errorf("unknown resolver %q (use video, direct or s3)", c.Resolver)
	}
	return nil
}

// HTTPClientConfig builds the client settings shared by resolvers and fetchers.
func (c *Config) HTTPClientConfig() utils.HTTPClientConfig {
	userAgent := c.UserAgent
	if userAgent == "randomize" {
		userAgent = utils.GetRandomUserAgent()
	}
	cfg := utils.HTTPClientConfig{
		Timeout:        c.Timeout,
		KATimeout:      c.KeepAliveTimeout,
		ProxyURL:       c.Proxy,
		ProxyUsername:  c.ProxyUsername,
		ProxyPassword:  c.ProxyPassword,
		UserAgent:      userAgent,
		Headers:        utils.ParseHeaderArgs(c.Headers),
		HighThreadMode: c.Segments > utils.HighThreadThreshold,
	}
	utils.SplitProxyAuth(&cfg)
	return cfg
}
