// Package config provides configuration management for bookkeeper.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Bookkeeper BookkeeperConfig
	Beancount  BeancountConfig
	Debug      bool
}

// BookkeeperConfig holds the classification and posting settings.
type BookkeeperConfig struct {
	DBPath         string
	TenantID       int64
	Actor          string
	ControlAccount string
	RulesFile      string
}

// BeancountConfig represents Beancount export configuration.
type BeancountConfig struct {
	Root        string
	DBPath      string
	Currency    string
	MappingFile string
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	tenantID, err := parseInt64Env("BOOKKEEPER_TENANT_ID", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKKEEPER_TENANT_ID: %w", err)
	}

	debug, err := parseBoolEnv("DEBUG", false)
	if err != nil {
		return nil, fmt.Errorf("invalid DEBUG: %w", err)
	}

	config := &Config{
		Bookkeeper: BookkeeperConfig{
			DBPath:         os.Getenv("BOOKKEEPER_DB_PATH"),
			TenantID:       tenantID,
			Actor:          getEnvOrDefault("BOOKKEEPER_ACTOR", "system"),
			ControlAccount: getEnvOrDefault("BOOKKEEPER_CONTROL_ACCOUNT", "1100"),
			RulesFile:      os.Getenv("BOOKKEEPER_RULES_FILE"),
		},
		Beancount: BeancountConfig{
			Root:        getEnvOrDefault("BEANCOUNT_ROOT", "./beancount"),
			DBPath:      os.Getenv("BEANCOUNT_DB_PATH"),
			Currency:    getEnvOrDefault("BEANCOUNT_CURRENCY", "ZAR"),
			MappingFile: getEnvOrDefault("BEANCOUNT_MAPPING_FILE", "config/beancount-mapping.yaml"),
		},
		Debug: debug,
	}

	return config, nil
}

// Validate checks that every required field is set. Each path names a
// section and a key, e.g. []string{"bookkeeper", "tenantId"}.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "bookkeeper":
			switch path[1] {
			case "dbPath":
				value = c.Bookkeeper.DBPath
			case "tenantId":
				if c.Bookkeeper.TenantID != 0 {
					value = "set"
				}
			case "actor":
				value = c.Bookkeeper.Actor
			case "controlAccount":
				value = c.Bookkeeper.ControlAccount
			case "rulesFile":
				value = c.Bookkeeper.RulesFile
			}
		case "beancount":
			switch path[1] {
			case "root":
				value = c.Beancount.Root
			case "dbPath":
				value = c.Beancount.DBPath
			case "currency":
				value = c.Beancount.Currency
			case "mappingFile":
				value = c.Beancount.MappingFile
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt64Env parses an int64 from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseInt64Env(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean value for %s: %s", key, value)
	}

	return parsed, nil
}
