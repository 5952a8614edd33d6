package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvLibraryPath = "CADENZA_LIBRARY_PATH"
	EnvServerPort  = "CADENZA_PORT"
	EnvLogLevel    = "CADENZA_LOG_LEVEL"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Player   PlayerConfig   `toml:"player"`
	Library  LibraryConfig  `toml:"library"`
	Storage  StorageConfig  `toml:"storage"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ServerConfig contains control surface configuration
type ServerConfig struct {
	Enabled     bool   `toml:"enabled"`
	Port        string `toml:"port"`
	Host        string `toml:"host"`
	ReadTimeout int    `toml:"read_timeout_seconds"`
	EnableCORS  bool   `toml:"enable_cors"`
}

// PlayerConfig contains playback configuration
type PlayerConfig struct {
	PollIntervalMillis int `toml:"poll_interval_ms"`
	HistorySize        int `toml:"history_size"`
	SampleRate         int `toml:"sample_rate"`
}

// LibraryConfig contains music library configuration
type LibraryConfig struct {
	Path             string   `toml:"path"`
	SupportedFormats []string `toml:"supported_formats"`
	WatchForChanges  bool     `toml:"watch_for_changes"`
	ScanOnStartup    bool     `toml:"scan_on_startup"`
}

// StorageConfig locates the JSON stores
type StorageConfig struct {
	LibraryFile   string `toml:"library_file"`
	PlaylistsFile string `toml:"playlists_file"`
}

// DatabaseConfig contains play log configuration
type DatabaseConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	File           string `toml:"file"`
	RequestLogging bool   `toml:"request_logging"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Enabled:     true,
			Port:        "8765",
			Host:        "127.0.0.1",
			ReadTimeout: 30,
			EnableCORS:  false,
		},
		Player: PlayerConfig{
			PollIntervalMillis: 1000,
			HistorySize:        500,
			SampleRate:         44100,
		},
		Library: LibraryConfig{
			Path:             "./music",
			SupportedFormats: []string{".mp3", ".wav", ".flac", ".ogg"},
			WatchForChanges:  true,
			ScanOnStartup:    false,
		},
		Storage: StorageConfig{
			LibraryFile:   "./library.json",
			PlaylistsFile: "./playlists.json",
		},
		Database: DatabaseConfig{
			Enabled: true,
			Path:    "./cadenza.db",
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			File:           "",
			RequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a TOML file, creating it with
// defaults when it does not exist. Environment overrides (including a
// .env file in the working directory) are applied last.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
	} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.ApplyEnv(".env"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnv loads envFile if it exists and applies CADENZA_* overrides.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvLibraryPath)); v != "" {
		c.Library.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerPort)); v != "" {
		c.Server.Port = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	return nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Cadenza Music Player Configuration
# Edit the values below to customize the player. CADENZA_LIBRARY_PATH,
# CADENZA_PORT and CADENZA_LOG_LEVEL override the matching settings.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Enabled {
		if c.Server.Port == "" {
			return fmt.Errorf("server port cannot be empty")
		}
		if c.Server.Host == "" {
			return fmt.Errorf("server host cannot be empty")
		}
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Player.PollIntervalMillis < 50 {
		return fmt.Errorf("player poll interval must be at least 50ms")
	}
	if c.Player.HistorySize < 1 {
		return fmt.Errorf("player history size must be at least 1")
	}
	if c.Player.SampleRate < 8000 {
		return fmt.Errorf("player sample rate must be at least 8000")
	}

	if c.Library.Path == "" {
		return fmt.Errorf("music library path cannot be empty")
	}
	if len(c.Library.SupportedFormats) == 0 {
		return fmt.Errorf("at least one supported audio format must be specified")
	}
	for _, f := range c.Library.SupportedFormats {
		if !strings.HasPrefix(f, ".") {
			return fmt.Errorf("supported format %q must start with a dot", f)
		}
	}

	if c.Storage.LibraryFile == "" || c.Storage.PlaylistsFile == "" {
		return fmt.Errorf("storage file paths cannot be empty")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// PollInterval returns the position poll period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Player.PollIntervalMillis) * time.Millisecond
}

// IsFormatSupported checks if an audio format is supported
func (c *Config) IsFormatSupported(format string) bool {
	for _, supported := range c.Library.SupportedFormats {
		if strings.EqualFold(supported, format) {
			return true
		}
	}
	return false
}
