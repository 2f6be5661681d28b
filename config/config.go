package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AuthModeJWKS   = "jwks"
	AuthModeHS256  = "hs256"
	AuthModeNone   = "none"
	envConfigFile  = "KANBAN_CONFIG"
	envPrefix      = "KANBAN"
	defaultChannel = "board-updates"
)

// Config holds service configuration.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Debug      bool   `mapstructure:"debug"`
	Redis      RedisConfig
	Dedupe     DedupeConfig
	Auth       AuthConfig
	Publish    PublishConfig
	Seed       SeedConfig
}

type RedisConfig struct {
	URL            string `mapstructure:"url"`
	UpdatesChannel string `mapstructure:"updates_channel"`
}

type DedupeConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// AuthConfig selects how bearer tokens are verified. "none" takes the bearer
// value itself as the user id and is meant for local development only.
type AuthConfig struct {
	Mode         string        `mapstructure:"mode"`
	Domain       string        `mapstructure:"domain"`
	Audience     string        `mapstructure:"audience"`
	SharedSecret string        `mapstructure:"shared_secret"`
	JWKSCacheTTL time.Duration `mapstructure:"jwks_cache_ttl"`
}

// PublishConfig tunes the change publishing worker pool.
type PublishConfig struct {
	Workers int           `mapstructure:"workers"`
	Buffer  int           `mapstructure:"buffer"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SeedConfig struct {
	File string `mapstructure:"file"`
}

// Load reads configuration from an optional YAML file and the environment.
// Env overrides use the KANBAN_ prefix, e.g. KANBAN_REDIS_URL.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("debug", false)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.updates_channel", defaultChannel)
	v.SetDefault("dedupe.ttl", 24*time.Hour)
	v.SetDefault("auth.mode", AuthModeJWKS)
	v.SetDefault("auth.domain", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.shared_secret", "")
	v.SetDefault("auth.jwks_cache_ttl", 15*time.Minute)
	v.SetDefault("publish.workers", 4)
	v.SetDefault("publish.buffer", 1024)
	v.SetDefault("publish.timeout", 5*time.Second)
	v.SetDefault("seed.file", "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(envConfigFile); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is empty"))
	}
	if c.Redis.URL == "" {
		errs = append(errs, errors.New("redis.url is required"))
	}
	if c.Redis.UpdatesChannel == "" {
		errs = append(errs, errors.New("redis.updates_channel is empty"))
	}
	if c.Dedupe.TTL <= 0 {
		errs = append(errs, errors.New("dedupe.ttl must be greater than zero"))
	}
	switch c.Auth.Mode {
	case AuthModeJWKS:
		if c.Auth.Domain == "" || c.Auth.Audience == "" {
			errs = append(errs, errors.New("auth.domain and auth.audience are required in jwks mode"))
		}
	case AuthModeHS256:
		if c.Auth.SharedSecret == "" {
			errs = append(errs, errors.New("auth.shared_secret is required in hs256 mode"))
		}
	case AuthModeNone:
	default:
		errs = append(errs, fmt.Errorf("unsupported auth.mode %q", c.Auth.Mode))
	}
	if c.Publish.Workers <= 0 {
		errs = append(errs, errors.New("publish.workers must be greater than zero"))
	}
	if c.Publish.Buffer < 0 {
		errs = append(errs, errors.New("publish.buffer must not be negative"))
	}
	if c.Publish.Timeout <= 0 {
		errs = append(errs, errors.New("publish.timeout must be greater than zero"))
	}
	return errors.Join(errs...)
}
