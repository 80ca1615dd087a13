// Package config loads application configuration from file and environment
// via viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// APIConfig holds tracker API configuration
type APIConfig struct {
	Endpoint string `mapstructure:"endpoint"`  // GraphQL endpoint, empty = public AniList API
	ClientID string `mapstructure:"client_id"` // OAuth client id for the login URL
}

// DatabaseConfig holds the embedded database location
type DatabaseConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// LoginURL returns the implicit-grant authorization URL the login flow
// opens in the browser.
func (c *APIConfig) LoginURL() string {
	return fmt.Sprintf("https://anilist.co/api/v2/oauth/authorize?client_id=%s&response_type=token", c.ClientID)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Endpoint: "",
			ClientID: "7723",
		},
		Database: DatabaseConfig{
			Dir: defaultDataPath(),
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the default database directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "aniscrobble")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".cache", "aniscrobble")
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "aniscrobble", "aniscrobble.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "aniscrobble", "aniscrobble.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "aniscrobble")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "aniscrobble")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("ANISCROBBLE")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}
