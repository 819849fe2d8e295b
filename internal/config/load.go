package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "HDX"

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the given YAML file instead of
// searching the working directory for config.yaml.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, so keys
	// without defaults need an explicit binding.
	bindEnvs := []struct {
		key    string
		envVar string
	}{
		{"cache.redis_url", EnvPrefix + "_CACHE_REDIS_URL"},
		{"ckan.api_key", EnvPrefix + "_CKAN_API_KEY"},
		{"update.endpoint", EnvPrefix + "_UPDATE_ENDPOINT"},
	}
	for _, env := range bindEnvs {
		if err := v.BindEnv(env.key, env.envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", env.envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.api_prefix", "/v1")

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.result_ttl", 500)
	v.SetDefault("task.sweep_interval", 60)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.default_ttl", 3600)
	v.SetDefault("cache.key_prefix", "hdx-age:")

	v.SetDefault("ckan.address", "https://data.hdx.rwlabs.org")

	v.SetDefault("update.chunk_size", 10000)
	v.SetDefault("update.row_limit", 0)
	v.SetDefault("update.mock_freq", 0)
	v.SetDefault("update.timeout", 30)
	v.SetDefault("update.ttl", 3600)
	v.SetDefault("update.concurrency", 8)
}
