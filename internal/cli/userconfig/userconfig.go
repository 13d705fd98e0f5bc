package userconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName  = "nuagevault"
	configFileName = "config.json"
	tokenFileName  = "tokens.json"

	// ConfigDirEnv overrides the configuration directory
	ConfigDirEnv = "NUAGEVAULT_CONFIG_DIR"
)

// UserConfig represents the user's local configuration stored in ~/.config/nuagevault/config.json
type UserConfig struct {
	APIURL      string `json:"api_url,omitempty"`
	LastAlbumID string `json:"last_album_id,omitempty"`
}

// ConfigDir returns the directory holding the CLI's local state
func ConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", configDirName), nil
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// TokenFilePath returns where the file token store keeps its slots
func TokenFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, tokenFileName), nil
}

// Load reads the user configuration file
func Load() (*UserConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return &UserConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the user configuration to a file
func Save(cfg *UserConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// SetLastAlbum remembers the album used by the last photo command
func SetLastAlbum(albumID string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.LastAlbumID = albumID
	return Save(cfg)
}

// GetLastAlbum returns the remembered album ID, or empty string if not set
func GetLastAlbum() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}

	return cfg.LastAlbumID, nil
}

// SetAPIURL stores the API address used when no flag or environment override is given
func SetAPIURL(apiURL string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.APIURL = apiURL
	return Save(cfg)
}
