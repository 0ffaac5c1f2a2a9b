// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/snapbooth/config.yaml",
	"/etc/snapbooth/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			PublicURL:   "",
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:                   "/data/snapbooth.duckdb",
			MaxMemory:              "512MB",
			Threads:                0,
			PreserveInsertionOrder: true,
		},
		Storage: StorageConfig{
			Backend:     "local",
			LocalDir:    "/data/uploads",
			MinIOBucket: "snapbooth",
			MinIOUseSSL: true,
		},
		Booth: BoothConfig{
			CodeLength:      8,
			CodeTTL:         time.Hour,
			SessionRate:     35000,
			Currency:        "IDR",
			SessionDuration: 120 * time.Second,
			MaxPhotoBytes:   5 << 20,
			MaxFrameBytes:   15 << 20,
			PageSize:        10,
			FrameCacheSize:  16,
			FrameCacheTTL:   10 * time.Minute,
		},
		SMTP: SMTPConfig{
			Port:        587,
			FromName:    "Snapbooth",
			UseTLS:      true,
			Timeout:     30 * time.Second,
			Subject:     "Your Snapbooth Photo",
			SendPerMin:  30,
			FallbackLog: "/data/logs/email-log.txt",
		},
		Security: SecurityConfig{
			AuthMode:            "jwt",
			SessionTimeout:      24 * time.Hour,
			RateLimitReqs:       100,
			RateLimitWindow:     time.Minute,
			CORSOrigins:         []string{"*"},
			CookieSecure:        false,
			RevocationStore:     "badger",
			RevocationStorePath: "/data/revocations",
		},
		Audit: AuditConfig{
			Enabled:         true,
			RetentionDays:   90,
			CleanupInterval: 24 * time.Hour,
			BufferSize:      1000,
		},
		Backup: BackupConfig{
			Enabled:          true,
			Dir:              "/data/backups",
			Interval:         24 * time.Hour,
			PreferredHour:    3,
			IncludeMedia:     true,
			CompressionLevel: 6,
			MaxCount:         14,
			MaxAge:           30 * 24 * time.Hour,
			MinCount:         2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config file (optional)
//  3. Environment variables (highest priority)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they arrive as strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices.
// Env vars arrive as strings while YAML lists are already slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"public_url":   "server.public_url",
	"environment":  "server.environment",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"storage_backend":   "storage.backend",
	"storage_local_dir": "storage.local_dir",
	"minio_endpoint":    "storage.minio_endpoint",
	"minio_access_key":  "storage.minio_access_key",
	"minio_secret_key":  "storage.minio_secret_key",
	"minio_bucket":      "storage.minio_bucket",
	"minio_use_ssl":     "storage.minio_use_ssl",
	"minio_region":      "storage.minio_region",

	"code_length":      "booth.code_length",
	"code_ttl":         "booth.code_ttl",
	"session_rate":     "booth.session_rate",
	"currency":         "booth.currency",
	"session_duration": "booth.session_duration",
	"max_photo_bytes":  "booth.max_photo_bytes",
	"max_frame_bytes":  "booth.max_frame_bytes",
	"page_size":        "booth.page_size",
	"frame_cache_size": "booth.frame_cache_size",
	"frame_cache_ttl":  "booth.frame_cache_ttl",

	"smtp_host":            "smtp.host",
	"smtp_port":            "smtp.port",
	"smtp_user":            "smtp.username",
	"smtp_password":        "smtp.password",
	"smtp_from":            "smtp.from",
	"smtp_from_name":       "smtp.from_name",
	"smtp_tls":             "smtp.use_tls",
	"smtp_timeout":         "smtp.timeout",
	"smtp_subject":         "smtp.subject",
	"smtp_send_per_minute": "smtp.send_per_minute",
	"email_log_path":       "smtp.fallback_log",

	"auth_mode":             "security.auth_mode",
	"jwt_secret":            "security.jwt_secret",
	"session_timeout":       "security.session_timeout",
	"admin_username":        "security.admin_username",
	"admin_password":        "security.admin_password",
	"rate_limit_requests":   "security.rate_limit_reqs",
	"rate_limit_window":     "security.rate_limit_window",
	"disable_rate_limit":    "security.rate_limit_disabled",
	"cors_origins":          "security.cors_origins",
	"cookie_secure":         "security.cookie_secure",
	"revocation_store":      "security.revocation_store",
	"revocation_store_path": "security.revocation_store_path",

	"audit_enabled":          "audit.enabled",
	"audit_retention_days":   "audit.retention_days",
	"audit_cleanup_interval": "audit.cleanup_interval",
	"audit_buffer_size":      "audit.buffer_size",

	"backup_enabled":           "backup.enabled",
	"backup_dir":               "backup.dir",
	"backup_interval":          "backup.interval",
	"backup_preferred_hour":    "backup.preferred_hour",
	"backup_include_media":     "backup.include_media",
	"backup_compression_level": "backup.compression_level",
	"backup_max_count":         "backup.max_count",
	"backup_max_age":           "backup.max_age",
	"backup_min_count":         "backup.min_count",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables return "" so unrelated environment does not leak into config.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - SESSION_RATE -> booth.session_rate
//   - SMTP_HOST -> smtp.host
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
