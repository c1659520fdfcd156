package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied by NewConfig.
const (
	DefaultLogLevel        = "warn"
	DefaultBcryptCost      = 10
	DefaultSessionTTLHours = 24 * 7
)

// Config represents the main configuration for vcr.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	RootDir    string           `toml:"root_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // "debug", "info", "warn" or "error"
	Database   DatabaseConfig   `toml:"database"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Auth       AuthConfig       `toml:"auth"`
}

// DatabaseConfig represents configuration for the account database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type string `toml:"type"`           // "sqlite" or "memory"
	Path string `toml:"path,omitempty"` // only used for type=sqlite; defaults to <root_dir>/.accounts
}

// FilesystemConfig holds settings for the repository tree.
type FilesystemConfig struct {
	Type   string   `toml:"type"` // "os" or "memory"
	Ignore []string `toml:"ignore"`
}

// AuthConfig holds password and session settings.
type AuthConfig struct {
	BcryptCost      int `toml:"bcrypt_cost"`
	SessionTTLHours int `toml:"session_ttl_hours"`
}

// NewConfig creates a new Config rooted at baseDir with default values.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:  baseDir,
		RootDir:  filepath.Join(baseDir, "repository"),
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: DefaultLogLevel,
		Database: DatabaseConfig{Type: "sqlite"},
		Filesystem: FilesystemConfig{
			Type:   "os",
			Ignore: []string{},
		},
		Auth: AuthConfig{
			BcryptCost:      DefaultBcryptCost,
			SessionTTLHours: DefaultSessionTTLHours,
		},
	}
}

// DatabasePath returns the sqlite file path, defaulting to the account
// table location inside the repository root.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.RootDir, ".accounts")
}

// SessionTTL returns how long a login stays valid.
func (c *Config) SessionTTL() time.Duration {
	if c.Auth.SessionTTLHours <= 0 {
		return DefaultSessionTTLHours * time.Hour
	}
	return time.Duration(c.Auth.SessionTTLHours) * time.Hour
}

// Validate checks the fields that have a fixed set of values.
func (c *Config) Validate() error {
	if c.RootDir == "" && c.Filesystem.Type != "memory" {
		return fmt.Errorf("root_dir is required")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level: %s", c.LogLevel)
	}
	switch c.Database.Type {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown database type: %s", c.Database.Type)
	}
	switch c.Filesystem.Type {
	case "", "os", "memory":
	default:
		return fmt.Errorf("unknown filesystem type: %s", c.Filesystem.Type)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads and validates a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
