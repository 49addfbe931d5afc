// Package config handles loading and validation of user configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var errInvalidDuplicateMode = errors.New("duplicate_mode must be strict, warn or prompt")

// botUserEnvVar overrides the configured bot identity.
const botUserEnvVar = "TAPBUMP_BOT_USER"

// Config represents the complete configuration for tapbump.
type Config struct {
	// Tap is the default upstream tap as "owner/repo", used when the
	// command line does not name one and no origin remote is available.
	Tap string `yaml:"tap"`

	// DuplicateMode is what to do when an open or closed PR already touches
	// the formula being bumped: "strict" (abort), "warn" or "prompt".
	DuplicateMode string `yaml:"duplicate_mode"`

	// BotUser is the automation identity exempt from the duplicate guard.
	BotUser string `yaml:"bot_user"`

	// API endpoint overrides for GitHub Enterprise deployments.
	APIBase    string `yaml:"api_base"`
	GraphQLURL string `yaml:"graphql_url"`
	UploadsURL string `yaml:"uploads_url"`

	// Commit author used when the local git config carries no identity.
	CommitName  string `yaml:"commit_name"`
	CommitEmail string `yaml:"commit_email"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		DuplicateMode: "warn",
		BotUser:       os.Getenv(botUserEnvVar),
	}
}

// Load reads and parses the configuration file from the user's home
// directory. A missing file is not an error; defaults are returned.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	return LoadFrom(filepath.Join(homeDir, ".config", "tapbump", "config.yml"))
}

// LoadFrom reads the configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	// #nosec G304 - Reading config from the user's home directory is intentional
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment wins over the file for the bot identity.
	if bot := os.Getenv(botUserEnvVar); bot != "" {
		config.BotUser = bot
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	switch c.DuplicateMode {
	case "strict", "warn", "prompt":
		return nil
	default:
		return fmt.Errorf("%w: %q", errInvalidDuplicateMode, c.DuplicateMode)
	}
}
