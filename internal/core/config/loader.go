package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content after expanding environment variables.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *AppConfig {
	var cfg AppConfig
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills unset fields.
func (c *AppConfig) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Service.Name == "" {
		c.Service.Name = "registry"
	}
	if c.Service.Timeout == 0 {
		c.Service.Timeout = 30 * time.Second
	}
	if c.Service.PageSize == 0 {
		c.Service.PageSize = 50
	}
	if c.Service.Health.Transport == "" {
		c.Service.Health.Transport = "rpc"
	}
	if c.Service.Health.Interval == 0 {
		c.Service.Health.Interval = 30 * time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = time.Second
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = 10 * time.Second
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = 1024
	}
	if c.Auth.RoleTTL == 0 {
		c.Auth.RoleTTL = 5 * time.Minute
	}
	if c.Auth.RoleStore == "" {
		c.Auth.RoleStore = "memory"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate rejects settings the client cannot run with.
func (c *AppConfig) Validate() error {
	switch c.Service.Health.Transport {
	case "rpc":
	case "grpc":
		if c.Service.Health.Endpoint == "" {
			return fmt.Errorf("service.health.endpoint is required for grpc health checks")
		}
	default:
		return fmt.Errorf("unknown health transport %q", c.Service.Health.Transport)
	}
	switch c.Auth.RoleStore {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("redis.url is required when auth.role_store is redis")
		}
	default:
		return fmt.Errorf("unknown role store %q", c.Auth.RoleStore)
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("retry.max_delay %s is below retry.initial_delay %s", c.Retry.MaxDelay, c.Retry.InitialDelay)
	}
	return nil
}
