// Package config loads the epubreader configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/yuanying/epubreader/internal/cover"
	"github.com/yuanying/epubreader/internal/epub"
)

// Config holds settings shared by every epubreader command.
type Config struct {
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	DefaultAuthor string `toml:"default_author"`
	Cover         Cover  `toml:"cover"`
	Speech        Speech `toml:"speech"`
}

// Cover configures thumbnail generation.
type Cover struct {
	MaxWidth    int `toml:"max_width"`
	JPEGQuality int `toml:"jpeg_quality"`
}

// Speech configures sentence extraction.
type Speech struct {
	SkipFrontMatter bool `toml:"skip_front_matter"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:      "info",
		LogFormat:     "text",
		DefaultAuthor: epub.DefaultAuthor,
		Cover: Cover{
			MaxWidth:    cover.DefaultMaxWidth,
			JPEGQuality: cover.DefaultJPEGQuality,
		},
	}
}

// DefaultPath returns ~/.config/epubreader/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "epubreader", "config.toml"), nil
}

// Load reads and validates the configuration at path. An empty path reads
// DefaultPath when it exists and falls back to Default otherwise. An
// explicit path that does not exist is an error. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("open config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.DefaultAuthor = strings.TrimSpace(c.DefaultAuthor)
	if c.DefaultAuthor == "" {
		c.DefaultAuthor = epub.DefaultAuthor
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json (got %q)", c.LogFormat)
	}
	if c.Cover.MaxWidth <= 0 {
		return fmt.Errorf("cover.max_width must be positive (got %d)", c.Cover.MaxWidth)
	}
	if c.Cover.JPEGQuality < 60 || c.Cover.JPEGQuality > 100 {
		return fmt.Errorf("cover.jpeg_quality must be between 60 and 100 (got %d)", c.Cover.JPEGQuality)
	}
	return nil
}
