package config

import (
	"time"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	GoogleConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetStorageDir() string
	GetRequestTimeout() time.Duration
	GetRequestsPerSecond() float64
	GetEnv() string
}

type GoogleConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleRedirectURL() string
}

type mainConfig struct {
	EnvVars
	Google
}

func New() Config {
	// A missing .env file is fine; the process environment still applies.
	_ = godotenv.Load()
	return mainConfig{}
}
