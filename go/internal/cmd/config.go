package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/cache"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		LogLevel       string   `yaml:"log_level"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	NATS struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"nats"`

	Redis struct {
		Enabled      bool `yaml:"enabled"`
		cache.Config `yaml:",inline"`
		TTL          time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Settlement struct {
		Embedded  bool          `yaml:"embedded"`
		Workers   int           `yaml:"workers"`
		BatchSize int           `yaml:"batch_size"`
		IdlePoll  time.Duration `yaml:"idle_poll"`
	} `yaml:"settlement"`

	Gateway struct {
		SendBufferSize int           `yaml:"send_buffer_size"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"gateway"`

	// Outbox relays the API server's own outbox when embedded. Without
	// NATS the events go straight to the gateway.
	Outbox struct {
		Embedded         bool          `yaml:"embedded"`
		FallbackInterval time.Duration `yaml:"fallback_interval"`
		BatchSize        int           `yaml:"batch_size"`
	} `yaml:"outbox"`
}

func defaultConfig() *Config {
	var c Config
	c.Server.Port = "8080"
	c.Server.LogLevel = "info"
	c.Server.AllowedOrigins = []string{"*"}
	c.NATS.URL = "nats://localhost:4222"
	c.Redis.Addr = "localhost:6379"
	c.Redis.TTL = 24 * time.Hour
	c.Settlement.Embedded = true
	c.Settlement.Workers = 4
	c.Settlement.BatchSize = 100
	c.Settlement.IdlePoll = 5 * time.Second
	c.Gateway.SendBufferSize = 256
	c.Gateway.PingInterval = 30 * time.Second
	c.Outbox.Embedded = true
	c.Outbox.FallbackInterval = 30 * time.Second
	c.Outbox.BatchSize = 100
	return &c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// loadConfig reads the YAML file over the defaults, then applies
// environment overrides. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv()
	return config, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.LogLevel = getEnv("LOG_LEVEL", c.Server.LogLevel)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	c.NATS.Enabled = getEnvAsBool("NATS_ENABLED", c.NATS.Enabled)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)

	c.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)

	c.Settlement.Embedded = getEnvAsBool("SETTLEMENT_EMBEDDED", c.Settlement.Embedded)
	c.Settlement.Workers = getEnvAsInt("SETTLEMENT_WORKERS", c.Settlement.Workers)

	c.Outbox.Embedded = getEnvAsBool("OUTBOX_EMBEDDED", c.Outbox.Embedded)
	if iv, err := time.ParseDuration(os.Getenv("FALLBACK_INTERVAL")); err == nil && iv > 0 {
		c.Outbox.FallbackInterval = iv
	}
}

func (c *Config) logLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Server.LogLevel)
	if err != nil || c.Server.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return level
}
