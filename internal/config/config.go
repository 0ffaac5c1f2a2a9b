// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

// Package config loads Snapbooth configuration.
//
// Loading order (Koanf v2):
//  1. Defaults: built-in values for every setting
//  2. Config file: optional YAML (config.yaml, or the path in CONFIG_PATH)
//  3. Environment variables: explicit mappings such as HTTP_PORT, JWT_SECRET
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Storage  StorageConfig  `koanf:"storage"`
	Booth    BoothConfig    `koanf:"booth"`
	SMTP     SMTPConfig     `koanf:"smtp"`
	Security SecurityConfig `koanf:"security"`
	Audit    AuditConfig    `koanf:"audit"`
	Backup   BackupConfig   `koanf:"backup"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	PublicURL   string        `koanf:"public_url"`  // Prefix for file URLs returned to clients (empty = relative)
	Environment string        `koanf:"environment"` // development, staging, production
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"` // 0 = runtime.NumCPU()
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
}

// StorageConfig selects where photos, frames and composites are kept.
type StorageConfig struct {
	// Backend is "local" (filesystem) or "minio" (S3-compatible object store).
	Backend  string `koanf:"backend"`
	LocalDir string `koanf:"local_dir"`

	MinIOEndpoint  string `koanf:"minio_endpoint"`
	MinIOAccessKey string `koanf:"minio_access_key"`
	MinIOSecretKey string `koanf:"minio_secret_key"`
	MinIOBucket    string `koanf:"minio_bucket"`
	MinIOUseSSL    bool   `koanf:"minio_use_ssl"`
	MinIORegion    string `koanf:"minio_region"`
}

// BoothConfig holds photobooth business rules.
type BoothConfig struct {
	CodeLength      int           `koanf:"code_length"`      // 6 or 8
	CodeTTL         time.Duration `koanf:"code_ttl"`         // 0 = codes never expire
	SessionRate     int64         `koanf:"session_rate"`     // Price charged per session
	Currency        string        `koanf:"currency"`         // ISO 4217 code used in earnings responses
	SessionDuration time.Duration `koanf:"session_duration"` // Capture countdown held server-side
	MaxPhotoBytes   int64         `koanf:"max_photo_bytes"`
	MaxFrameBytes   int64         `koanf:"max_frame_bytes"`
	PageSize        int           `koanf:"page_size"`
	FrameCacheSize  int           `koanf:"frame_cache_size"`
	FrameCacheTTL   time.Duration `koanf:"frame_cache_ttl"`
}

// SMTPConfig holds outbound mail settings. Leaving Host empty disables
// delivery; messages are logged instead.
type SMTPConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Username    string        `koanf:"username"`
	Password    string        `koanf:"password"`
	From        string        `koanf:"from"`
	FromName    string        `koanf:"from_name"`
	UseTLS      bool          `koanf:"use_tls"`
	Timeout     time.Duration `koanf:"timeout"`
	Subject     string        `koanf:"subject"`
	SendPerMin  int           `koanf:"send_per_minute"`
	FallbackLog string        `koanf:"fallback_log"` // Appended to when no transport is configured
}

// Configured reports whether an SMTP transport is available.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.Username != "" && s.Password != ""
}

// SecurityConfig holds authentication and authorization settings
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"` // jwt or none
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"` // Bootstrapped on first start when no users exist
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	CookieSecure      bool          `koanf:"cookie_secure"`

	// RevocationStore is "memory" or "badger"; badger keeps logouts across restarts.
	RevocationStore     string `koanf:"revocation_store"`
	RevocationStorePath string `koanf:"revocation_store_path"`
}

// AuditConfig controls the staff audit trail kept in DuckDB.
type AuditConfig struct {
	Enabled         bool          `koanf:"enabled"`
	RetentionDays   int           `koanf:"retention_days"` // 0 = keep forever
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	BufferSize      int           `koanf:"buffer_size"`
}

// BackupConfig controls database and media archives.
type BackupConfig struct {
	Enabled          bool          `koanf:"enabled"`
	Dir              string        `koanf:"dir"`
	Interval         time.Duration `koanf:"interval"` // 0 = manual backups only
	PreferredHour    int           `koanf:"preferred_hour"`
	IncludeMedia     bool          `koanf:"include_media"` // Archive the local upload directory with the database
	CompressionLevel int           `koanf:"compression_level"`

	// Retention: the newest MinCount archives are always kept.
	MaxCount int           `koanf:"max_count"`
	MaxAge   time.Duration `koanf:"max_age"`
	MinCount int           `koanf:"min_count"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json (production) or console (development).
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Load reads configuration from defaults, an optional config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
