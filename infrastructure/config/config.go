// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server
	ServerAddress string
	Environment   string
	EnableCORS    bool

	// AWS
	AWSRegion string

	// DynamoDB
	TableName string
	Indexes   IndexNames

	// S3
	ReceiptsBucket string
	SignedURLTTL   time.Duration

	// Auth
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	// Logging
	LogLevel string
}

// IndexNames are the GSI names the query planner targets. They default
// to the deployed names but are overridable for alternate stacks.
type IndexNames struct {
	ByDonor      string
	ByDate       string
	ByExpiration string
}

// Load reads configuration from environment variables with sensible
// development defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),

		AWSRegion: getEnv("AWS_REGION", "us-west-2"),

		TableName: getEnv("DYNAMODB_TABLE", "savinggrace"),
		Indexes: IndexNames{
			ByDonor:      getEnv("INDEX_BY_DONOR", "GSI1"),
			ByDate:       getEnv("INDEX_BY_DATE", "GSI2"),
			ByExpiration: getEnv("INDEX_BY_EXPIRATION", "GSI3"),
		},

		ReceiptsBucket: getEnv("RECEIPTS_BUCKET", ""),
		SignedURLTTL:   time.Duration(getEnvInt("SIGNED_URL_TTL_SECONDS", 900)) * time.Second,

		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTIssuer:   getEnv("JWT_ISSUER", "savinggrace"),
		JWTAudience: getEnv("JWT_AUDIENCE", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces settings that must be present outside development.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.TableName == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required in production")
		}
	}
	return nil
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
