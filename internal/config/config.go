// Package config provides configuration management for the NFT wallet reporter.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Ankr      AnkrConfig
	Budget    BudgetConfig
	Breaker   BreakerConfig
	RateLimit RateLimitConfig
	Archive   ArchiveConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// Enabled reports whether a Postgres host has been configured
func (c PostgresConfig) Enabled() bool {
	return c.Host != ""
}

// URL returns the connection URL used by golang-migrate
func (c PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// Enabled reports whether a ClickHouse host has been configured
func (c ClickHouseConfig) Enabled() bool {
	return c.Host != ""
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// Enabled reports whether a Redis host has been configured
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// AnkrConfig holds the multichain provider configuration.
// It is passed explicitly to the transfer fetcher; nothing reads it globally.
type AnkrConfig struct {
	BaseURL        string
	APIKey         string
	PageSize       int
	RequestTimeout time.Duration
	MaxAttempts    int
	Blockchains    []string
}

// BudgetConfig holds the shared provider credit budget (Redis-backed)
type BudgetConfig struct {
	Enabled          bool
	CreditsPerWindow int
	Window           time.Duration
	MaxWait          time.Duration
	MethodCosts      map[string]int
}

// BreakerConfig holds circuit breaker settings for provider calls
type BreakerConfig struct {
	MaxFailures      int
	FailureThreshold float64
	OpenTimeout      time.Duration
}

// RateLimitConfig holds per-client API rate limits
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// ArchiveConfig toggles the optional persistence sinks
type ArchiveConfig struct {
	Commands    bool
	ReportStats bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", ""),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "nft_reports"),
				User:           getEnv("POSTGRES_USER", "reporter"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", ""),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "nft_reports"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", ""),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Ankr: AnkrConfig{
			BaseURL:        getEnv("ANKR_BASE_URL", "https://rpc.ankr.com/multichain"),
			APIKey:         getEnv("ANKR", getEnv("ANKR_API_KEY", "")),
			PageSize:       getEnvAsInt("ANKR_PAGE_SIZE", 10000),
			RequestTimeout: getEnvAsDuration("ANKR_REQUEST_TIMEOUT", 30*time.Second),
			MaxAttempts:    getEnvAsInt("ANKR_MAX_ATTEMPTS", 1),
			Blockchains:    getEnvAsList("ANKR_BLOCKCHAINS"),
		},
		Budget: BudgetConfig{
			Enabled:          getEnvAsBool("BUDGET_ENABLED", false),
			CreditsPerWindow: getEnvAsInt("BUDGET_CREDITS_PER_WINDOW", 1500),
			Window:           getEnvAsDuration("BUDGET_WINDOW", time.Second),
			MaxWait:          getEnvAsDuration("BUDGET_MAX_WAIT", 30*time.Second),
			MethodCosts:      getEnvAsCostMap("BUDGET_METHOD_COSTS"),
		},
		Breaker: BreakerConfig{
			MaxFailures:      getEnvAsInt("BREAKER_MAX_FAILURES", 10),
			FailureThreshold: getEnvAsFloat("BREAKER_FAILURE_THRESHOLD", 0.5),
			OpenTimeout:      getEnvAsDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 2),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 5),
		},
		Archive: ArchiveConfig{
			Commands:    getEnvAsBool("ARCHIVE_COMMANDS", true),
			ReportStats: getEnvAsBool("ARCHIVE_REPORT_STATS", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that would make the fetcher misbehave
func (c *Config) Validate() error {
	if c.Ankr.PageSize <= 0 {
		return fmt.Errorf("ANKR_PAGE_SIZE must be positive, got %d", c.Ankr.PageSize)
	}
	if c.Ankr.MaxAttempts <= 0 {
		return fmt.Errorf("ANKR_MAX_ATTEMPTS must be positive, got %d", c.Ankr.MaxAttempts)
	}
	if c.Ankr.RequestTimeout <= 0 {
		return fmt.Errorf("ANKR_REQUEST_TIMEOUT must be positive")
	}
	if c.Budget.Enabled && !c.Database.Redis.Enabled() {
		return fmt.Errorf("BUDGET_ENABLED requires REDIS_HOST")
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a bool with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated variable, dropping blanks
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, ""), ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvAsCostMap parses "method=cost,method=cost" pairs; malformed pairs are skipped
func getEnvAsCostMap(key string) map[string]int {
	costs := make(map[string]int)
	for _, pair := range getEnvAsList(key) {
		method, costStr, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		cost, err := strconv.Atoi(strings.TrimSpace(costStr))
		if err != nil || cost <= 0 {
			continue
		}
		costs[strings.TrimSpace(method)] = cost
	}
	return costs
}
