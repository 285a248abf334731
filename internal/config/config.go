// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Data      DataConfig
	Server    ServerConfig
	Auth      AuthConfig
	Invite    InviteConfig
	Identity  IdentityConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds storage configuration.
type DataConfig struct {
	// BasePath is the directory for the database and signing key.
	BasePath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	BaseURL      string        // Public web address, used in invitation links
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed CORS origins
}

// AuthConfig holds token signing configuration.
type AuthConfig struct {
	// SigningSecret is the active HMAC secret (32 bytes). Set from the
	// key file by auth.LoadOrGenerateSecret in main.
	SigningSecret []byte
	// PreviousSecretHex optionally carries the retired secret during
	// rotation so tokens it signed stay valid until they expire.
	PreviousSecretHex string
}

// InviteConfig holds invitation configuration.
type InviteConfig struct {
	// ExpiryDays is how long invitations stay acceptable (default: 7).
	ExpiryDays int
}

// IdentityConfig holds identity provider configuration.
type IdentityConfig struct {
	// Endpoint is the provider's userinfo URL. Empty enables the static
	// development verifier.
	Endpoint string
	Timeout  time.Duration
}

// EmailConfig holds email delivery configuration.
type EmailConfig struct {
	// Endpoint is the email API URL. Empty disables delivery.
	Endpoint string
	APIKey   string
	From     string
	Timeout  time.Duration
}

// RateLimitConfig holds token-endpoint rate limiting configuration.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for data storage")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	serverBaseURL := flag.String("base-url", "", "Public web address for invitation links")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated allowed CORS origins")

	// Invite flags
	inviteExpiryDays := flag.String("invite-expiry-days", "", "Days until invitations expire (default: 7)")

	// Identity flags
	identityEndpoint := flag.String("identity-endpoint", "", "Identity provider userinfo URL")

	// Email flags
	emailEndpoint := flag.String("email-endpoint", "", "Email API URL")
	emailFrom := flag.String("email-from", "", "From address for outbound email")

	// Rate limit flags
	rateLimitRPS := flag.String("rate-limit-rps", "", "Token endpoint requests per second per client (default: 1)")
	rateLimitBurst := flag.String("rate-limit-burst", "", "Token endpoint burst size per client (default: 5)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			BaseURL:     getConfigValue(*serverBaseURL, "SERVER_BASE_URL", "http://localhost:8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "")),
		},
		Auth: AuthConfig{
			SigningSecret:     nil, // Set by auth.LoadOrGenerateSecret in main
			PreviousSecretHex: getConfigValue("", "PREVIOUS_SIGNING_SECRET", ""),
		},
		Invite: InviteConfig{
			ExpiryDays: getIntConfigValue(*inviteExpiryDays, "INVITE_EXPIRY_DAYS", 7),
		},
		Identity: IdentityConfig{
			Endpoint: getConfigValue(*identityEndpoint, "IDENTITY_ENDPOINT", ""),
		},
		Email: EmailConfig{
			Endpoint: getConfigValue(*emailEndpoint, "EMAIL_ENDPOINT", ""),
			APIKey:   getConfigValue("", "EMAIL_API_KEY", ""),
			From:     getConfigValue(*emailFrom, "EMAIL_FROM", "noreply@localhost"),
		},
		RateLimit: RateLimitConfig{
			RPS:   getFloatConfigValue(*rateLimitRPS, "RATE_LIMIT_RPS", 1),
			Burst: getIntConfigValue(*rateLimitBurst, "RATE_LIMIT_BURST", 5),
		},
	}

	// Parse server timeouts.
	readTimeoutStr := getConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	readTimeoutDuration, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", readTimeoutStr, err)
	}
	cfg.Server.ReadTimeout = readTimeoutDuration

	writeTimeoutStr := getConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	writeTimeoutDuration, err := time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout %q: %w", writeTimeoutStr, err)
	}
	cfg.Server.WriteTimeout = writeTimeoutDuration

	idleTimeoutStr := getConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	idleTimeoutDuration, err := time.ParseDuration(idleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout %q: %w", idleTimeoutStr, err)
	}
	cfg.Server.IdleTimeout = idleTimeoutDuration

	// Parse external client timeouts.
	identityTimeoutStr := getConfigValue("", "IDENTITY_TIMEOUT", "10s")
	identityTimeout, err := time.ParseDuration(identityTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid identity timeout %q: %w", identityTimeoutStr, err)
	}
	cfg.Identity.Timeout = identityTimeout

	emailTimeoutStr := getConfigValue("", "EMAIL_TIMEOUT", "15s")
	emailTimeout, err := time.ParseDuration(emailTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid email timeout %q: %w", emailTimeoutStr, err)
	}
	cfg.Email.Timeout = emailTimeout

	// Expand and validate the data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// InviteExpiry returns the configured invitation lifetime.
func (c *Config) InviteExpiry() time.Duration {
	return time.Duration(c.Invite.ExpiryDays) * 24 * time.Hour
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Invite.ExpiryDays <= 0 {
		return fmt.Errorf("invalid invite expiry days: %d (must be positive)", c.Invite.ExpiryDays)
	}

	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("invalid rate limit rps: %g (must be positive)", c.RateLimit.RPS)
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("invalid rate limit burst: %d (must be positive)", c.RateLimit.Burst)
	}

	// In production an identity provider is mandatory; development falls
	// back to the static verifier.
	if c.App.Environment == "production" && c.Identity.Endpoint == "" {
		return errors.New("IDENTITY_ENDPOINT is required in production")
	}

	if c.Email.Endpoint != "" && c.Email.APIKey == "" {
		return errors.New("EMAIL_API_KEY is required when EMAIL_ENDPOINT is set")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "CashFlow", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// splitList splits a comma-separated value into trimmed entries.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
