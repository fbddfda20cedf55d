package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the complete application configuration
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Server     ServerConfig     `toml:"server"`
	Store      StoreConfig      `toml:"store"`
	Recognizer RecognizerConfig `toml:"recognizer"`
	Auth       AuthConfig       `toml:"auth"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Name     string `toml:"name"`
	DataDir  string `toml:"data_dir"`
	LogLevel string `toml:"log_level"`
}

// ServerConfig holds HTTP API server settings
type ServerConfig struct {
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
	ChunkDir     string   `toml:"chunk_dir"`
}

// StoreConfig holds persistence settings
type StoreConfig struct {
	// Driver selects the backend: "sqlite" or "memory"
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

// RecognizerConfig holds remote speech recognizer settings
type RecognizerConfig struct {
	// APIKey may reference an environment variable, e.g. "${OPENAI_API_KEY}".
	// An empty key disables recognition: slices are stored with empty text.
	APIKey   string   `toml:"api_key"`
	BaseURL  string   `toml:"base_url"`
	Model    string   `toml:"model"`
	Language string   `toml:"language"`
	Timeout  Duration `toml:"timeout"`
}

// AuthConfig holds bearer-token authentication settings
type AuthConfig struct {
	// JWTSecret may reference an environment variable. When empty the
	// server runs in single-user mode and every request maps to LocalUser.
	JWTSecret string `toml:"jwt_secret"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Load loads configuration from a TOML file
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()

	return &cfg, nil
}

// LoadFromEnv loads configuration from the VOXNOTE_CONFIG environment
// variable, falling back to default locations. When no file exists a
// default configuration is returned.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("VOXNOTE_CONFIG")
	if path == "" {
		defaultPaths := []string{
			"./configs/voxnote.toml",
			"./voxnote.toml",
			filepath.Join(os.Getenv("HOME"), ".config/voxnote/voxnote.toml"),
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return Default(), nil
	}

	return Load(path)
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.expandEnvVars()
	return cfg
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.General.Name == "" {
		c.General.Name = "VoxNote"
	}
	if c.General.DataDir == "" {
		c.General.DataDir = "./data"
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout.Duration = 30 * time.Second
	}
	if c.Server.WriteTimeout.Duration == 0 {
		// Slice ingestion waits on the remote recognizer including retries.
		c.Server.WriteTimeout.Duration = 120 * time.Second
	}
	if c.Server.ChunkDir == "" {
		c.Server.ChunkDir = filepath.Join(os.TempDir(), "voxnote_chunks")
	}

	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(c.General.DataDir, "voxnote.db")
	}

	if c.Recognizer.APIKey == "" {
		c.Recognizer.APIKey = "${OPENAI_API_KEY}"
	}
	if c.Recognizer.Model == "" {
		c.Recognizer.Model = "whisper-1"
	}
	if c.Recognizer.Language == "" {
		c.Recognizer.Language = "en"
	}
	if c.Recognizer.Timeout.Duration == 0 {
		c.Recognizer.Timeout.Duration = 60 * time.Second
	}

	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = "${VOXNOTE_JWT_SECRET}"
	}
}

// expandEnvVars expands environment variables in configuration values
func (c *Config) expandEnvVars() {
	c.General.DataDir = os.ExpandEnv(c.General.DataDir)
	c.Server.ChunkDir = os.ExpandEnv(c.Server.ChunkDir)
	c.Store.Path = os.ExpandEnv(c.Store.Path)
	c.Recognizer.APIKey = os.ExpandEnv(c.Recognizer.APIKey)
	c.Auth.JWTSecret = os.ExpandEnv(c.Auth.JWTSecret)
}

// ServerAddress returns the host:port string for the HTTP server
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
