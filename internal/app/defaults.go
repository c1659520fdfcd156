package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables that override default locations.
const (
	EnvConfigPath = "VCR_CONFIG_PATH" // config file
	EnvHome       = "VCR_HOME"        // base directory for logs and the session file
	EnvRoot       = "VCR_ROOT"        // repository root shared by all users
)

// GetDefaults returns application default paths, checking environment variables first.
//
//	config_path  $VCR_CONFIG_PATH or ~/.config/vcr.toml
//	base_dir     $VCR_HOME or ~/.local/share/vcr
//	log_dir      <base_dir>/log
//	root_dir     $VCR_ROOT or <base_dir>/repository
func GetDefaults() (map[string]string, error) {
	configPath, err := envOrHome(EnvConfigPath, ".config", "vcr.toml")
	if err != nil {
		return nil, err
	}

	baseDir, err := envOrHome(EnvHome, ".local", "share", "vcr")
	if err != nil {
		return nil, err
	}

	rootDir := os.Getenv(EnvRoot)
	if rootDir == "" {
		rootDir = filepath.Join(baseDir, "repository")
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"root_dir":    rootDir,
	}, nil
}

// envOrHome returns the value of key, or elem joined under the home directory.
func envOrHome(key string, elem ...string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory (set %s): %w", key, err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
