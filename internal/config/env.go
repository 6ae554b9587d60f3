package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Env holds settings read from the process environment.
type Env struct {
	APIKey    string `env:"LEETIFY_API_KEY"`
	BaseURL   string `env:"LEETIFY_BASE_URL"`
	DataDir   string `env:"LEETBOARD_DATA_DIR"`
	DBPath    string `env:"LEETBOARD_DB_PATH"`
	LogLevel  string `env:"LEETBOARD_LOG_LEVEL"`
	LogFormat string `env:"LEETBOARD_LOG_FORMAT"`
}

// LoadEnv parses the environment, loading a .env file from the working
// directory first when one exists.
func LoadEnv() (Env, error) {
	_ = godotenv.Load()

	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return e, nil
}
