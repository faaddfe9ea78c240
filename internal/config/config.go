// Package config resolves file locations from flags, the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// SourceEnvVar names the environment variable (and .env key) holding the export path
const SourceEnvVar = "SUMMARIZED_ACTIVITIES_PATH"

// Default locations, relative to the working directory
const (
	DefaultSource    = "data/summarized_activities.json"
	DefaultOutput    = "data/summarized_activities_clean.csv"
	DefaultFigureDir = "data/figures"
	DefaultDBPath    = "data/activities.db"
	DefaultEnvFile   = ".env"
)

// ResolveSource returns the export path to read when no --source flag was given.
// The environment wins over the .env file, which wins over DefaultSource.
// A missing .env file is not an error.
func ResolveSource(envFile string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(SourceEnvVar)); v != "" {
		return v, nil
	}

	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			if v := strings.TrimSpace(vals[SourceEnvVar]); v != "" {
				return v, nil
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return "", fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	return DefaultSource, nil
}
