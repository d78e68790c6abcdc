package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_EnvSubstitution(t *testing.T) {
	// Setup env var
	os.Setenv("TEST_REGISTRY_URL", "https://registry.example.org/rpc")
	defer os.Unsetenv("TEST_REGISTRY_URL")

	// Create temp config file
	configContent := `
service:
  endpoint: ${TEST_REGISTRY_URL}
retry:
  max_attempts: 5
  initial_delay: 500ms
cache:
  ttl:
    alley-layout: 10m
`
	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write([]byte(configContent)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()

	// Load config
	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Service.Endpoint != "https://registry.example.org/rpc" {
		t.Errorf("Expected endpoint https://registry.example.org/rpc, got %s", cfg.Service.Endpoint)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("Expected 5 attempts, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.InitialDelay != 500*time.Millisecond {
		t.Errorf("Expected 500ms initial delay, got %s", cfg.Retry.InitialDelay)
	}
	if cfg.Cache.TTL["alley-layout"] != 10*time.Minute {
		t.Errorf("Expected alley-layout TTL 10m, got %s", cfg.Cache.TTL["alley-layout"])
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("service:\n  endpoint: http://localhost:4943\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.InitialDelay != time.Second || cfg.Retry.MaxDelay != 10*time.Second {
		t.Errorf("Unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.Auth.RoleTTL != 5*time.Minute {
		t.Errorf("Expected role TTL 5m, got %s", cfg.Auth.RoleTTL)
	}
	if cfg.Service.Health.Transport != "rpc" {
		t.Errorf("Expected rpc health transport, got %s", cfg.Service.Health.Transport)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]string{
		"grpc without endpoint": "service:\n  health:\n    transport: grpc\n",
		"unknown transport":     "service:\n  health:\n    transport: carrier-pigeon\n",
		"redis without url":     "auth:\n  role_store: redis\n",
		"inverted delays":       "retry:\n  initial_delay: 20s\n  max_delay: 1s\n",
	}
	for name, content := range cases {
		if _, err := Parse([]byte(content)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}
