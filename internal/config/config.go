package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load env vars from .env file directly
func init() {
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist (e.g. in production),
		// but we should log it just in case.
		// However, mostly we want to rely on environment variables being set.
		// If we are in local dev, this helps.
		log.Println("No .env file found or error loading it, using system environment variables")
	}
}

// Config holds every piece of required configuration for the snapshot
// service, read from BASE_URL, PORT, NODE_ENV, DATABASE_URL, REDIS_URL,
// SELENIUM_HOST, SELENIUM_PORT, SELENIUM_MAX_INSTANCES and ASSETS_FOLDER.
// SeleniumNavigateLimit is fixed at 60s and not read from the environment.
type Config struct {
	BaseURL     string
	Port        string
	Env         string
	DatabaseURL string
	RedisURL    string

	SeleniumHost          string
	SeleniumPort          string
	SeleniumMaxInstances  int
	SeleniumNavigateLimit time.Duration

	AssetsFolder string
}

// Load reads and validates the required configuration, exiting the process
// with status 1 (via log.Fatal, matching the teacher's cmd/server.go
// startup behavior) when a required variable is missing or malformed.
func Load() *Config {
	cfg := &Config{
		BaseURL:               getEnv("BASE_URL", "0.0.0.0"),
		Port:                  getEnv("PORT", "3001"),
		Env:                   getEnv("NODE_ENV", "development"),
		DatabaseURL:           requireEnv("DATABASE_URL"),
		RedisURL:              requireEnv("REDIS_URL"),
		SeleniumHost:          requireEnv("SELENIUM_HOST"),
		SeleniumPort:          requireEnv("SELENIUM_PORT"),
		SeleniumMaxInstances:  requireEnvInt("SELENIUM_MAX_INSTANCES"),
		SeleniumNavigateLimit: 60 * time.Second,
		AssetsFolder:          getEnv("ASSETS_FOLDER", "assets"),
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("%s environment variable is required", key)
	}
	return value
}

func requireEnvInt(key string) int {
	raw := requireEnv(key)
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Fatal(fmt.Errorf("%s must be a positive integer, got %q", key, raw))
	}
	return n
}

// GetAllowedOrigins returns a slice of allowed origins from the environment
// variable. It defaults to localhost:3000 if not set.
func GetAllowedOrigins() []string {
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr == "" {
		return []string{"http://localhost:3000"}
	}

	// Split by comma and trim spaces
	parts := strings.Split(originsStr, ",")
	var origins []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
