// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := c.validateBooth(); err != nil {
		return err
	}

	if err := c.validateSMTP(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateAudit(); err != nil {
		return err
	}

	if err := c.validateBackup(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if c.Audit.RetentionDays < 0 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must not be negative")
	}
	if c.Audit.BufferSize < 1 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be at least 1")
	}
	return nil
}

func (c *Config) validateBackup() error {
	b := c.Backup
	if !b.Enabled {
		return nil
	}
	if b.Dir == "" {
		return fmt.Errorf("BACKUP_DIR is required when backups are enabled")
	}
	if b.Interval != 0 && b.Interval < time.Hour {
		return fmt.Errorf("BACKUP_INTERVAL must be 0 or at least 1h")
	}
	if b.PreferredHour < 0 || b.PreferredHour > 23 {
		return fmt.Errorf("BACKUP_PREFERRED_HOUR must be between 0 and 23")
	}
	if b.CompressionLevel < 1 || b.CompressionLevel > 9 {
		return fmt.Errorf("BACKUP_COMPRESSION_LEVEL must be between 1 and 9")
	}
	if b.MinCount < 1 {
		return fmt.Errorf("BACKUP_MIN_COUNT must be at least 1")
	}
	if b.MaxCount != 0 && b.MaxCount < b.MinCount {
		return fmt.Errorf("BACKUP_MAX_COUNT must be 0 or at least BACKUP_MIN_COUNT")
	}
	if b.MaxAge < 0 {
		return fmt.Errorf("BACKUP_MAX_AGE must not be negative")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

// validateStorage checks the selected backend has what it needs.
func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("STORAGE_LOCAL_DIR is required when STORAGE_BACKEND is local")
		}
	case "minio":
		if c.Storage.MinIOEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required when STORAGE_BACKEND is minio")
		}
		if strings.Contains(c.Storage.MinIOEndpoint, "://") {
			return fmt.Errorf("MINIO_ENDPOINT must be host[:port] without a scheme; use MINIO_USE_SSL for https")
		}
		if c.Storage.MinIOAccessKey == "" || c.Storage.MinIOSecretKey == "" {
			return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when STORAGE_BACKEND is minio")
		}
		if c.Storage.MinIOBucket == "" {
			return fmt.Errorf("MINIO_BUCKET is required when STORAGE_BACKEND is minio")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of: local, minio")
	}
	return nil
}

// validateBooth checks photobooth business rules.
func (c *Config) validateBooth() error {
	b := c.Booth
	if b.CodeLength != 6 && b.CodeLength != 8 {
		return fmt.Errorf("CODE_LENGTH must be 6 or 8")
	}
	if b.CodeTTL < 0 {
		return fmt.Errorf("CODE_TTL must not be negative")
	}
	if b.SessionRate < 0 {
		return fmt.Errorf("SESSION_RATE must not be negative")
	}
	if b.SessionDuration < 10*time.Second || b.SessionDuration > time.Hour {
		return fmt.Errorf("SESSION_DURATION must be between 10s and 1h")
	}
	if b.MaxPhotoBytes <= 0 || b.MaxFrameBytes <= 0 {
		return fmt.Errorf("MAX_PHOTO_BYTES and MAX_FRAME_BYTES must be positive")
	}
	if b.PageSize < 1 || b.PageSize > 100 {
		return fmt.Errorf("PAGE_SIZE must be between 1 and 100")
	}
	if b.FrameCacheSize < 1 {
		return fmt.Errorf("FRAME_CACHE_SIZE must be at least 1")
	}
	return nil
}

// validateSMTP only applies when a transport is configured; an empty host
// selects the log-only mailer.
func (c *Config) validateSMTP() error {
	if c.SMTP.Host == "" {
		return nil
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
	}
	if c.SMTP.From == "" && c.SMTP.Username == "" {
		return fmt.Errorf("SMTP_FROM or SMTP_USER is required when SMTP_HOST is set")
	}
	if c.SMTP.SendPerMin < 1 {
		return fmt.Errorf("SMTP_SEND_PER_MINUTE must be at least 1")
	}
	return nil
}

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	if err := c.validateAuthMode(); err != nil {
		return err
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	if err := c.validateRateLimits(); err != nil {
		return err
	}

	if err := c.validateRevocationStore(); err != nil {
		return err
	}

	if c.Security.AuthMode == "jwt" {
		return c.validateJWTAuth()
	}
	return nil
}

// validateCORS rejects wildcard origins in production while auth is enabled,
// since the auth cookie would then be usable from any site.
func (c *Config) validateCORS() error {
	if c.Security.AuthMode != "none" && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled. " +
			"Set specific origins: CORS_ORIGINS=https://booth.example.com " +
			"or use ENVIRONMENT=development for testing purposes")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration should be flagged at startup.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateRevocationStore() error {
	switch c.Security.RevocationStore {
	case "memory":
		return nil
	case "badger":
		if c.Security.RevocationStorePath == "" {
			return fmt.Errorf("REVOCATION_STORE_PATH is required when REVOCATION_STORE is badger")
		}
		return nil
	default:
		return fmt.Errorf("REVOCATION_STORE must be one of: memory, badger")
	}
}

// validAuthModes defines the allowed authentication modes
var validAuthModes = map[string]bool{
	"none": true,
	"jwt":  true,
}

func (c *Config) validateAuthMode() error {
	if !validAuthModes[c.Security.AuthMode] {
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt")
	}

	// Refuse an open admin area in production.
	if c.Security.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

func (c *Config) validateJWTAuth() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is jwt")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	return c.validateBootstrapAdmin()
}

// validateBootstrapAdmin checks the optional first-start admin account.
func (c *Config) validateBootstrapAdmin() error {
	user, pass := c.Security.AdminUsername, c.Security.AdminPassword
	if user == "" && pass == "" {
		return nil
	}
	if user == "" || pass == "" {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	if len(user) < 3 || len(user) > 20 {
		return fmt.Errorf("ADMIN_USERNAME must be between 3 and 20 characters")
	}
	if len(pass) < 6 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 6 characters")
	}
	if containsPlaceholder(pass) {
		return fmt.Errorf("ADMIN_PASSWORD contains a placeholder value - set a secure password")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns flag values copied from sample configs.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"YOUR_PASSWORD",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
