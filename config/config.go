// Package config loads the service configuration from a file and the
// environment. Environment variables use the PLAUSIBUS_ prefix and win
// over file values.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
	Workers  WorkerConfig   `mapstructure:"workers"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// DatabaseConfig configures the postgres stores. An empty URL runs the
// service on the built-in in-memory reference data, for development.
type DatabaseConfig struct {
	URL          string        `mapstructure:"url"`
	MaxConns     int32         `mapstructure:"max_conns"`
	ConnTimeout  time.Duration `mapstructure:"conn_timeout"`
}

// CacheConfig configures the lookup caches.
type CacheConfig struct {
	ArticleTTL     time.Duration `mapstructure:"article_ttl"`
	ArticleSize    int           `mapstructure:"article_size"`
	ReferenceTTL   time.Duration `mapstructure:"reference_ttl"`
	ReferenceSize  int           `mapstructure:"reference_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// WorkerConfig configures bulk validation.
type WorkerConfig struct {
	Count int `mapstructure:"count"`
}

// Load reads the configuration. path may name a config file; when empty,
// only defaults and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", int64(8*1024*1024))

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", int32(8))
	v.SetDefault("database.conn_timeout", 5*time.Second)

	v.SetDefault("cache.article_ttl", 24*time.Hour)
	v.SetDefault("cache.article_size", 50_000)
	v.SetDefault("cache.reference_ttl", 24*time.Hour)
	v.SetDefault("cache.reference_size", 4096)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("workers.count", 0)

	v.SetEnvPrefix("PLAUSIBUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
