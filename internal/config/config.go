package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server config
	Server ServerConfig

	// Gemini API config
	APIs APIConfig

	// optional shared-store config
	Database DatabaseConfig

	// rate limiting
	Limits LimitsConfig

	// CORS origin allow-list
	Security SecurityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string
	Environment  string // development, staging, production
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// APIConfig holds external API configuration.
type APIConfig struct {
	GeminiAPIKey string
	GeminiModel  string
}

// DatabaseConfig holds the optional PostgreSQL connection settings.
// When URL is empty the gateway runs with in-process state only.
type DatabaseConfig struct {
	URL string
}

// LimitsConfig holds rate limiting settings.
type LimitsConfig struct {
	Window          time.Duration
	AnalysisLimit   int
	CompendiumLimit int
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	AllowedOrigins []string
}

// placeholder values that mean "no key configured" rather than a usable key.
var placeholderKeys = map[string]bool{
	"":                    true,
	"PLACEHOLDER_API_KEY": true,
	"your_api_key_here":   true,
	"YOUR_GEMINI_API_KEY": true,
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// HasDatabase reports whether a shared Postgres store is configured.
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// APIKeyConfigured reports whether a real Gemini key is present.
func (c *Config) APIKeyConfigured() bool {
	return !placeholderKeys[c.APIs.GeminiAPIKey]
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	// This is useful for local development but not required in production
	// where env vars are typically set by the orchestration platform
	_ = godotenv.Load()

	cfg := &Config{}

	readTimeout, err := getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	writeTimeout, err := getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	idleTimeout, err := getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.Server = ServerConfig{
		Address:      getEnvOrDefault("SERVER_ADDRESS", ":8080"),
		Environment:  getEnvOrDefault("APP_ENV", "development"),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	// GEMINI_API_KEY with legacy API_KEY fallback
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("API_KEY")
	}
	cfg.APIs = APIConfig{
		GeminiAPIKey: apiKey,
		GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
	}

	cfg.Database = DatabaseConfig{
		URL: os.Getenv("DATABASE_URL"),
	}

	analysisLimit, err := getIntOrDefault("ANALYSIS_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	compendiumLimit, err := getIntOrDefault("COMPENDIUM_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	window, err := getDurationOrDefault("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.Limits = LimitsConfig{
		Window:          window,
		AnalysisLimit:   analysisLimit,
		CompendiumLimit: compendiumLimit,
	}

	cfg.Security = SecurityConfig{
		AllowedOrigins: strings.Fields(getEnvOrDefault("ALLOWED_ORIGINS",
			"http://localhost:5173 http://localhost:3000")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the loaded configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Limits.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.Limits.AnalysisLimit <= 0 || c.Limits.CompendiumLimit <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.Server.Environment] {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of: development, staging, production (got: %s)", c.Server.Environment))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}
	return nil
}

// getEnvOrDefault returns the .env value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return duration, nil
}

// MustLoad is like Load but panics on error.
// Used in main() where its required to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
