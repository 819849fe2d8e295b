package config

import (
	"strconv"
	"strings"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Task   TaskConfig   `mapstructure:"task" validate:"required"`
	Cache  CacheConfig  `mapstructure:"cache" validate:"required"`
	CKAN   CKANConfig   `mapstructure:"ckan" validate:"required"`
	Update UpdateConfig `mapstructure:"update" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// Host is the externally visible host name used to build result and
	// update URLs handed back to clients.
	Host      string `mapstructure:"host" validate:"required,hostname_rfc1123|ip"`
	APIPrefix string `mapstructure:"api_prefix" validate:"omitempty,startswith=/,excludesall=?#"`
}

// BaseURL returns the externally visible URL of the API, including the
// prefix and without a trailing slash.
func (s ServerConfig) BaseURL() string {
	return "http://" + s.Host + ":" + strconv.Itoa(s.Port) + strings.TrimRight(s.APIPrefix, "/")
}

// TaskConfig contains settings for the background job runner.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"gt=0"`
	// ResultTTLSeconds is how long finished and failed jobs stay queryable.
	ResultTTLSeconds     int `mapstructure:"result_ttl" validate:"gt=0"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval" validate:"gt=0"`
}

// CacheConfig contains settings for the response cache.
type CacheConfig struct {
	Backend           string `mapstructure:"backend" validate:"required,oneof=memory redis"`
	DefaultTTLSeconds int    `mapstructure:"default_ttl" validate:"gt=0"`
	RedisURL          string `mapstructure:"redis_url" validate:"required_if=Backend redis"`
	KeyPrefix         string `mapstructure:"key_prefix" validate:"required_if=Backend redis"`
}

// CKANConfig describes the CKAN instance whose datasets are tracked.
type CKANConfig struct {
	Address string `mapstructure:"address" validate:"required,url"`
	APIKey  string `mapstructure:"api_key"`
}

// UpdateConfig holds the default options for dataset age updates.
// Each value can be overridden per request through query parameters.
type UpdateConfig struct {
	ChunkSize      int `mapstructure:"chunk_size" validate:"gt=0"`
	RowLimit       int `mapstructure:"row_limit" validate:"gte=0"`
	MockFreq       int `mapstructure:"mock_freq" validate:"gte=0"`
	TimeoutSeconds int `mapstructure:"timeout" validate:"gt=0"`
	TTLSeconds     int `mapstructure:"ttl" validate:"gte=0"`
	// Concurrency bounds the in-flight requests within one chunk.
	Concurrency int `mapstructure:"concurrency" validate:"gt=0"`
	// Endpoint is the dataset age service called for every pid.
	// Empty means the API's own age route.
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
}

// UpdateEndpoint returns the dataset age service URL.
func (c *Config) UpdateEndpoint() string {
	if c.Update.Endpoint != "" {
		return c.Update.Endpoint
	}
	return c.Server.BaseURL() + "/age"
}
