package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Attempts    AttemptsConfig    `mapstructure:"attempts"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Postgres    PostgresConfig    `mapstructure:"postgres"`
	ObjectStore ObjectStoreConfig `mapstructure:"object_store"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// AttemptsConfig controls the poll-based delivery endpoint.
type AttemptsConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	ClientID         string        `mapstructure:"client_id"`
	AuthTokens       []string      `mapstructure:"auth_tokens"`
	ScryptCost       string        `mapstructure:"scrypt_cost"`
	DigestCacheTTL   time.Duration `mapstructure:"digest_cache_ttl"`
	PublicKey        string        `mapstructure:"public_key"`
	ServeFromArchive bool          `mapstructure:"serve_from_archive"`
	StreamEnabled    bool          `mapstructure:"stream_enabled"`
	StreamChunkSize  int64         `mapstructure:"stream_chunk_size"`
	EventRetention   time.Duration `mapstructure:"event_retention"`
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

type ObjectStoreConfig struct {
	URL     string        `mapstructure:"url"`
	Bucket  string        `mapstructure:"bucket"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8098)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("attempts.enabled", true)
	v.SetDefault("attempts.scrypt_cost", "16384$8$1$")
	v.SetDefault("attempts.digest_cache_ttl", "48h")
	v.SetDefault("attempts.serve_from_archive", false)
	v.SetDefault("attempts.stream_enabled", true)
	v.SetDefault("attempts.stream_chunk_size", 1048576)
	v.SetDefault("attempts.event_retention", "24h")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("object_store.timeout", "30s")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/setpoll")
	}

	// Environment variables override
	v.SetEnvPrefix("SETPOLL")
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
