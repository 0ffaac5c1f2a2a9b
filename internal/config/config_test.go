// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "k3p9vQ2xN7mR4tY8wZ1cB5fH6jL0sD3a"

// setupTestEnv sets up test environment variables and returns cleanup function
func setupTestEnv(t *testing.T, envVars map[string]string) func() {
	t.Helper()
	os.Clearenv()
	for k, v := range envVars {
		if err := os.Setenv(k, v); err != nil {
			t.Fatalf("failed to set env var %s: %v", k, err)
		}
	}
	return func() {
		os.Clearenv()
	}
}

func assertNoError(t *testing.T, err error, testName string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", testName, err)
	}
}

func assertErrorContains(t *testing.T, err error, expected, testName string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error containing %q, got nil", testName, expected)
	}
	if !strings.Contains(err.Error(), expected) {
		t.Errorf("%s: error = %v, want error containing %q", testName, err, expected)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cleanup := setupTestEnv(t, map[string]string{"JWT_SECRET": testSecret})
	defer cleanup()

	cfg, err := Load()
	assertNoError(t, err, "Load")

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Booth.CodeLength != 8 {
		t.Errorf("Booth.CodeLength = %d, want 8", cfg.Booth.CodeLength)
	}
	if cfg.Booth.SessionRate != 35000 {
		t.Errorf("Booth.SessionRate = %d, want 35000", cfg.Booth.SessionRate)
	}
	if cfg.Booth.SessionDuration != 120*time.Second {
		t.Errorf("Booth.SessionDuration = %v, want 2m0s", cfg.Booth.SessionDuration)
	}
	if cfg.Booth.MaxPhotoBytes != 5<<20 {
		t.Errorf("Booth.MaxPhotoBytes = %d", cfg.Booth.MaxPhotoBytes)
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("Storage.Backend = %q, want local", cfg.Storage.Backend)
	}
	if cfg.SMTP.Configured() {
		t.Error("SMTP should not be configured by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	cleanup := setupTestEnv(t, map[string]string{
		"JWT_SECRET":       testSecret,
		"HTTP_PORT":        "9090",
		"CODE_LENGTH":      "6",
		"CODE_TTL":         "30m",
		"SESSION_RATE":     "50000",
		"SESSION_DURATION": "90s",
		"CORS_ORIGINS":     "https://a.example.org, https://b.example.org",
		"SMTP_HOST":        "smtp.example.org",
		"SMTP_USER":        "booth",
		"SMTP_PASSWORD":    "secret",
		"UNRELATED_VAR":    "ignored",
	})
	defer cleanup()

	cfg, err := Load()
	assertNoError(t, err, "Load")

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Booth.CodeLength != 6 {
		t.Errorf("Booth.CodeLength = %d, want 6", cfg.Booth.CodeLength)
	}
	if cfg.Booth.CodeTTL != 30*time.Minute {
		t.Errorf("Booth.CodeTTL = %v, want 30m", cfg.Booth.CodeTTL)
	}
	if cfg.Booth.SessionRate != 50000 {
		t.Errorf("Booth.SessionRate = %d, want 50000", cfg.Booth.SessionRate)
	}
	if cfg.Booth.SessionDuration != 90*time.Second {
		t.Errorf("Booth.SessionDuration = %v, want 90s", cfg.Booth.SessionDuration)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example.org" {
		t.Errorf("Security.CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if !cfg.SMTP.Configured() {
		t.Error("SMTP should be configured")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapbooth.yaml")
	content := `
server:
  port: 7000
booth:
  currency: USD
  session_rate: 5
security:
  auth_mode: none
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cleanup := setupTestEnv(t, map[string]string{
		"CONFIG_PATH": path,
		"HTTP_PORT":   "7001",
	})
	defer cleanup()

	cfg, err := Load()
	assertNoError(t, err, "Load")

	if cfg.Server.Port != 7001 {
		t.Errorf("env should override file: Server.Port = %d, want 7001", cfg.Server.Port)
	}
	if cfg.Booth.Currency != "USD" || cfg.Booth.SessionRate != 5 {
		t.Errorf("Booth = %+v", cfg.Booth)
	}
	if cfg.Security.AuthMode != "none" {
		t.Errorf("Security.AuthMode = %q, want none", cfg.Security.AuthMode)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"bad code length", func(c *Config) { c.Booth.CodeLength = 7 }, "CODE_LENGTH"},
		{"negative rate", func(c *Config) { c.Booth.SessionRate = -1 }, "SESSION_RATE"},
		{"short timer", func(c *Config) { c.Booth.SessionDuration = time.Second }, "SESSION_DURATION"},
		{"missing jwt secret", func(c *Config) { c.Security.JWTSecret = "" }, "JWT_SECRET is required"},
		{"short jwt secret", func(c *Config) { c.Security.JWTSecret = "short" }, "at least 32"},
		{"placeholder secret", func(c *Config) { c.Security.JWTSecret = "CHANGEME-CHANGEME-CHANGEME-CHANGEME" }, "placeholder"},
		{"unknown auth mode", func(c *Config) { c.Security.AuthMode = "oidc" }, "AUTH_MODE"},
		{"none in production", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Server.Environment = "production"
		}, "not allowed"},
		{"wildcard cors in production", func(c *Config) { c.Server.Environment = "production" }, "CORS_ORIGINS"},
		{"admin without password", func(c *Config) { c.Security.AdminUsername = "admin" }, "set together"},
		{"admin short password", func(c *Config) {
			c.Security.AdminUsername = "admin"
			c.Security.AdminPassword = "abc"
		}, "at least 6"},
		{"minio without endpoint", func(c *Config) { c.Storage.Backend = "minio" }, "MINIO_ENDPOINT"},
		{"minio with scheme", func(c *Config) {
			c.Storage.Backend = "minio"
			c.Storage.MinIOEndpoint = "https://s3.example.org"
		}, "without a scheme"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "gcs" }, "STORAGE_BACKEND"},
		{"smtp bad port", func(c *Config) {
			c.SMTP.Host = "smtp.example.org"
			c.SMTP.Port = 0
		}, "SMTP_PORT"},
		{"badger without path", func(c *Config) { c.Security.RevocationStorePath = "" }, "REVOCATION_STORE_PATH"},
		{"rate limit disabled skips bounds", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
		{"negative audit retention", func(c *Config) { c.Audit.RetentionDays = -1 }, "AUDIT_RETENTION_DAYS"},
		{"zero audit buffer", func(c *Config) { c.Audit.BufferSize = 0 }, "AUDIT_BUFFER_SIZE"},
		{"audit disabled skips bounds", func(c *Config) {
			c.Audit.Enabled = false
			c.Audit.BufferSize = 0
		}, ""},
		{"backup interval too short", func(c *Config) { c.Backup.Interval = 10 * time.Minute }, "BACKUP_INTERVAL"},
		{"manual backups only", func(c *Config) { c.Backup.Interval = 0 }, ""},
		{"backup max below min", func(c *Config) {
			c.Backup.MinCount = 3
			c.Backup.MaxCount = 2
		}, "BACKUP_MAX_COUNT"},
		{"backup bad hour", func(c *Config) { c.Backup.PreferredHour = 24 }, "BACKUP_PREFERRED_HOUR"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := defaultConfig()
			cfg.Security.JWTSecret = testSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assertNoError(t, err, tt.name)
				return
			}
			assertErrorContains(t, err, tt.wantErr, tt.name)
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"HTTP_PORT":     "server.port",
		"SMTP_USER":     "smtp.username",
		"SESSION_RATE":  "booth.session_rate",
		"MINIO_BUCKET":  "storage.minio_bucket",
		"PATH":          "",
		"UNRELATED_VAR": "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestServerConfig_Addr(t *testing.T) {
	t.Parallel()

	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
}
