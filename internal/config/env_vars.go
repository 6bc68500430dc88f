package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	appNameVar     = "APP_NAME"
	apiURLVar      = "API_URL"
	storageDirVar  = "STORAGE_DIR"
	timeoutVar     = "REQUEST_TIMEOUT_SECONDS"
	rateLimitVar   = "REQUESTS_PER_SECOND"
	defaultAPIURL  = "http://localhost:3000"
	defaultTimeout = 15 * time.Second
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "ToDo")
}

func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiURLVar, defaultAPIURL)
}

// GetStorageDir returns the directory holding the persisted session record.
// Defaults to a per-user config directory, falling back to ./data when the
// platform has none.
func (EnvVars) GetStorageDir() string {
	if dir := os.Getenv(storageDirVar); dir != "" {
		return dir
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(configDir, "todo")
}

func (EnvVars) GetRequestTimeout() time.Duration {
	seconds, err := strconv.Atoi(GetEnv(timeoutVar, ""))
	if err != nil || seconds <= 0 {
		return defaultTimeout
	}
	return time.Duration(seconds) * time.Second
}

// GetRequestsPerSecond returns the outbound rate limit; 0 disables throttling.
func (EnvVars) GetRequestsPerSecond() float64 {
	limit, err := strconv.ParseFloat(GetEnv(rateLimitVar, "0"), 64)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
