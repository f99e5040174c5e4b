package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jonathan/webform-converter/internal/config"
)

// loadSettings reads the optional config file. Flags are applied by the
// caller and defaults afterwards.
func loadSettings(path string, verbose bool, out io.Writer) (config.Config, error) {
	if path == "" {
		return config.Config{}, nil
	}

	loaded, err := config.LoadConfig(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return config.Config{}, err
	}

	if verbose {
		_, _ = fmt.Fprintf(out, "Loaded config from: %s\n", path)
	}
	return *loaded, nil
}

// databaseURL prefers the flag or config value and falls back to DATABASE_URL.
func databaseURL(value string) string {
	if value != "" {
		return value
	}
	return os.Getenv("DATABASE_URL")
}
