package testutils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/joho/godotenv"
)

// LoadEnv loads the .env file from the project root directory if present.
func LoadEnv() error {
	_, filename, _, _ := runtime.Caller(0)
	envPath := filepath.Join(filepath.Dir(filename), "..", "..", ".env")

	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(envPath)
}

// RequireEnv loads .env and skips the test unless every key is set. It
// returns the values in the order of keys.
func RequireEnv(t *testing.T, keys ...string) []string {
	t.Helper()
	if err := LoadEnv(); err != nil {
		t.Fatalf("failed to load .env file: %v", err)
	}

	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = os.Getenv(k)
		if values[i] == "" {
			t.Skipf("%s not set", k)
		}
	}
	return values
}

// GetEnvOrDefault gets an environment variable with a default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
