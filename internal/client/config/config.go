package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	ConfigFile = "config.json"

	// DefaultServerURL is used until the user points the client elsewhere.
	DefaultServerURL = "http://localhost:8080"
)

// Preference keys remembered between park actions.
const (
	PrefVehicleID = "vehicle_id"
	PrefPlate     = "plate"
	PrefContact   = "contact"
)

// GetConfigDir returns the config directory for the current user.
// PARKING_CONFIG_DIR overrides the default ~/.parking.
func GetConfigDir() (string, error) {
	if dir := os.Getenv("PARKING_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user directory: %w", err)
	}

	return filepath.Join(home, ".parking"), nil
}

type Config struct {
	ServerURL string `json:"server_url"`
	Token     string `json:"token,omitempty"`

	// Profile attached to park actions
	UserID       string `json:"user_id,omitempty"`
	UserName     string `json:"user_name,omitempty"`
	UserImageURL string `json:"user_image_url,omitempty"`

	// Prefs is a free-form string store for remembered values
	Prefs map[string]string `json:"prefs,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: DefaultServerURL,
		Prefs:     map[string]string{},
	}
}

// Load loads the configuration from disk, returning defaults when no file
// exists yet.
func Load() (*Config, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(configDir, ConfigFile))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if config.ServerURL == "" {
		config.ServerURL = DefaultServerURL
	}
	if config.Prefs == nil {
		config.Prefs = map[string]string{}
	}

	return config, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	c.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Only owner can read: the file may hold a token
	if err := os.WriteFile(filepath.Join(configDir, ConfigFile), data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Delete deletes the configuration file
func Delete() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	return os.Remove(filepath.Join(configDir, ConfigFile))
}

// Get returns a remembered value, or "" when unset.
func (c *Config) Get(key string) string {
	return c.Prefs[key]
}

// Set remembers a value. An empty value removes the key.
func (c *Config) Set(key, value string) {
	if c.Prefs == nil {
		c.Prefs = map[string]string{}
	}
	if value == "" {
		delete(c.Prefs, key)
		return
	}
	c.Prefs[key] = value
}

// HasProfile reports whether a user id or name has been saved.
func (c *Config) HasProfile() bool {
	return c.UserID != "" || c.UserName != ""
}
