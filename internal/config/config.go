package config

import (
	"log"
	"os"
)

const (
	defaultDBPath   = "./isokalk.db"
	defaultPort     = "8080"
	defaultLogLevel = "info"
	defaultCurrency = "EUR"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	DBPath   string
	Port     string
	LogLevel string
	Currency string
	Env      string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_ = loadDotEnv(".env")

	cfg := Config{
		DBPath:   os.Getenv("DB_PATH"),
		Port:     os.Getenv("PORT"),
		LogLevel: os.Getenv("LOG_LEVEL"),
		Currency: os.Getenv("CURRENCY"),
		Env:      os.Getenv("APP_ENV"),
	}

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if cfg.Env == "" {
		log.Print("warning: APP_ENV is not set, assuming dev")
		cfg.Env = "dev"
	}

	return cfg
}

// IsDev reports whether the application runs in development mode.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}
