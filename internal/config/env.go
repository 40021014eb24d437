package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvRemoteURL  = "CLICKSPEED_REMOTE_URL"
	EnvProgramKey = "CLICKSPEED_PROGRAM_KEY"
	EnvServerDSN  = "CLICKSPEED_SERVER_DSN"
	EnvLogLevel   = "CLICKSPEED_LOG_LEVEL"
	EnvNEISKey    = "NEIS_API_KEY"
)

// LoadDotEnv loads variables from path into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *FileConfig) {
	if v, ok := lookupEnv(EnvRemoteURL); ok {
		cfg.Remote.BaseURL = &v
	}
	if v, ok := lookupEnv(EnvProgramKey); ok {
		cfg.Remote.ProgramKey = &v
	}
	if v, ok := lookupEnv(EnvServerDSN); ok {
		cfg.Server.DSN = &v
	}
	if v, ok := lookupEnv(EnvLogLevel); ok {
		cfg.Log.Level = &v
	}
	if v, ok := lookupEnv(EnvNEISKey); ok {
		cfg.Meal.APIKey = &v
	}
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
