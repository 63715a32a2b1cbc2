package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/leadscout/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	GitHub GitHubConfig `yaml:"github" mapstructure:"github"`
	Whois  WhoisConfig  `yaml:"whois" mapstructure:"whois"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Worker WorkerConfig `yaml:"worker" mapstructure:"worker"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// GitHubConfig holds GitHub API settings.
type GitHubConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// WhoisConfig configures the WHOIS lookup used by company research.
type WhoisConfig struct {
	Enabled     bool `yaml:"enabled" mapstructure:"enabled"`
	TimeoutSecs int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FetchConfig configures the website page fetcher.
type FetchConfig struct {
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PerHostRate     float64 `yaml:"per_host_rate" mapstructure:"per_host_rate"`
	PerHostBurst    int     `yaml:"per_host_burst" mapstructure:"per_host_burst"`
	MaxBodyBytes    int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	UserAgent       string  `yaml:"user_agent" mapstructure:"user_agent"`
	CacheTTLMinutes int     `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
}

// WorkerConfig configures the analysis worker pool.
type WorkerConfig struct {
	Size             int `yaml:"size" mapstructure:"size"`
	PollIntervalSecs int `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
}

// PollInterval returns the poll interval as a duration.
func (c WorkerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadscout.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("github.base_url", "https://api.github.com")
	v.SetDefault("whois.enabled", true)
	v.SetDefault("whois.timeout_secs", 5)
	v.SetDefault("fetch.timeout_secs", 10)
	v.SetDefault("fetch.per_host_rate", 2)
	v.SetDefault("fetch.per_host_burst", 2)
	v.SetDefault("fetch.cache_ttl_minutes", 60)
	v.SetDefault("worker.size", 2)
	v.SetDefault("worker.poll_interval_secs", 2)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
