package config

import (
	"os"
	"strconv"
	"time"
)

// getEnv returns the value of an environment variable or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt returns the value of an environment variable as an integer,
// or a default value if not set or if parsing fails.
func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

// getBool returns the value of an environment variable as a boolean,
// or a default value if not set or if parsing fails.
func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

// getDuration returns the value of an environment variable as a time.Duration,
// or a default value if not set or if parsing fails.
// Accepts formats like: "300ms", "1.5h", "2h45m"
func getDuration(key string, defaultValue string) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		duration, _ := time.ParseDuration(defaultValue)
		return duration
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		// Fall back to default if parsing fails
		duration, _ = time.ParseDuration(defaultValue)
		return duration
	}

	return duration
}
