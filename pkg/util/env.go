package util

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetStringFromEnv returns the trimmed value of key or defaultValue when it is empty.
func GetStringFromEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// GetIntFromEnv returns an integer from environment variable or default value.
func GetIntFromEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return intValue
	}
	return defaultValue
}

// GetFloatFromEnv returns a float from environment variable or default value.
func GetFloatFromEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return floatValue
	}
	return defaultValue
}

// GetDurationFromEnv parses values like "500ms" or "2m". A bare integer is read as seconds.
func GetDurationFromEnv(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
