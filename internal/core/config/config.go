package config

import (
	"time"

	redisclient "github.com/vietddude/cemetery/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Service ServiceConfig      `yaml:"service"`
	Retry   RetryConfig        `yaml:"retry"`
	Cache   CacheConfig        `yaml:"cache"`
	Auth    AuthConfig         `yaml:"auth"`
	Redis   redisclient.Config `yaml:"redis"`
	Logging LoggingConfig      `yaml:"logging"`
	Server  ServerConfig       `yaml:"server"`
}

// ServiceConfig locates the remote registry.
type ServiceConfig struct {
	Name     string        `yaml:"name"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	Health   HealthConfig  `yaml:"health"`
	PageSize int           `yaml:"page_size"`
}

// HealthConfig selects how connectivity is probed.
type HealthConfig struct {
	Transport string        `yaml:"transport"` // rpc, grpc
	Endpoint  string        `yaml:"endpoint"`  // grpc target
	Service   string        `yaml:"service"`   // grpc health service name
	Interval  time.Duration `yaml:"interval"`
}

// RetryConfig holds the scheduler bounds.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// CacheConfig sizes the read cache. TTL keys are category names.
type CacheConfig struct {
	Capacity int                      `yaml:"capacity"`
	TTL      map[string]time.Duration `yaml:"ttl"`
}

// AuthConfig holds identity settings.
type AuthConfig struct {
	Principal string        `yaml:"principal"`
	RoleTTL   time.Duration `yaml:"role_ttl"`
	RoleStore string        `yaml:"role_store"` // memory, redis
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}
