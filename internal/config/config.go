package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads a .env file if one exists so local development doesn't need
// exported variables. Missing files are fine; real deployments set env vars.
func Load() {
	if err := godotenv.Load(); err == nil {
		log.Println("[CONFIG] Loaded settings from .env")
	}
}

// GetString returns the environment variable or a default.
func GetString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetInt returns the environment variable parsed as int, or a default.
func GetInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		log.Printf("[CONFIG] Invalid integer for %s=%q, using %d", key, v, fallback)
	}
	return fallback
}

// GetDuration returns the environment variable parsed as a duration, or a default.
func GetDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
		log.Printf("[CONFIG] Invalid duration for %s=%q, using %v", key, v, fallback)
	}
	return fallback
}

// GetBool returns true when the environment variable is a truthy flag.
func GetBool(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "yes":
		return true
	}
	return false
}
