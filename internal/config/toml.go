// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Game   GameConfig   `toml:"game"`
	Remote RemoteConfig `toml:"remote"`
	Meal   MealConfig   `toml:"meal"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
}

// GameConfig maps session settings.
type GameConfig struct {
	Duration  *int  `toml:"duration"`
	Durations []int `toml:"durations"`
}

// RemoteConfig maps the online ranking service settings.
type RemoteConfig struct {
	Enabled    *bool   `toml:"enabled"`
	BaseURL    *string `toml:"base-url"`
	SubmitPath *string `toml:"submit-path"`
	ListPath   *string `toml:"list-path"`
	ProgramKey *string `toml:"program-key"`
	Timeout    *string `toml:"timeout"`
}

// MealConfig maps the meal lookup settings.
type MealConfig struct {
	BaseURL       *string `toml:"base-url"`
	APIKey        *string `toml:"api-key"`
	FallbackDelay *string `toml:"fallback-delay"`
}

// ServerConfig maps the ranking server settings.
type ServerConfig struct {
	Addr           *string  `toml:"addr"`
	DSN            *string  `toml:"dsn"`
	AllowedOrigins []string `toml:"allowed-origins"`
	Limit          *int     `toml:"limit"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
