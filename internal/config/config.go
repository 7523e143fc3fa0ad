// Package config handles the viewer's global configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents configuration stored in ~/.config/citegraph/config.yml
// (or config.toml).
type Config struct {
	Server        string        `json:"server" yaml:"server" toml:"server"`
	Width         float64       `json:"width" yaml:"width" toml:"width"`
	Height        float64       `json:"height" yaml:"height" toml:"height"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
	RateLimit     float64       `json:"rate_limit" yaml:"rate_limit" toml:"rate_limit"`
	Layout        string        `json:"layout" yaml:"layout" toml:"layout"`
	ShowLabels    bool          `json:"show_labels" yaml:"show_labels" toml:"show_labels"`
	CacheDB       string        `json:"cache_db,omitempty" yaml:"cache_db,omitempty" toml:"cache_db,omitempty"`
	KeepSnapshots int           `json:"keep_snapshots" yaml:"keep_snapshots" toml:"keep_snapshots"`
	Listen        string        `json:"listen" yaml:"listen" toml:"listen"`
}

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "citegraph"
	// ConfigFile is the YAML config file name.
	ConfigFile = "config.yml"
	// TOMLConfigFile is used when present and no YAML file exists.
	TOMLConfigFile = "config.toml"
	// DBFile is the snapshot cache file name under XDG_CACHE_HOME.
	DBFile = "snapshots.db"
)

// Environment variables that override file settings.
const (
	EnvServer    = "CITEGRAPH_SERVER"
	EnvWidth     = "CITEGRAPH_WIDTH"
	EnvHeight    = "CITEGRAPH_HEIGHT"
	EnvTimeout   = "CITEGRAPH_TIMEOUT"
	EnvCacheDB   = "CITEGRAPH_CACHE_DB"
	EnvRateLimit = "CITEGRAPH_RATE_LIMIT"
	EnvListen    = "CITEGRAPH_LISTEN"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:        "http://localhost:5000",
		Width:         800,
		Height:        550,
		Timeout:       30 * time.Second,
		RateLimit:     20,
		Layout:        "force",
		ShowLabels:    true,
		KeepSnapshots: 10,
		Listen:        "127.0.0.1:8080",
	}
}

// Dir returns the config directory. Respects XDG_CONFIG_HOME, defaults to
// ~/.config/citegraph.
func Dir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir)
}

// Path returns the config file to read: config.yml unless only a
// config.toml exists.
func Path() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	yml := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(yml); err == nil {
		return yml
	}
	tml := filepath.Join(dir, TOMLConfigFile)
	if _, err := os.Stat(tml); err == nil {
		return tml
	}
	return yml
}

// DefaultCacheDB returns the snapshot cache path. Respects XDG_CACHE_HOME.
func DefaultCacheDB() string {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DBFile
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, ConfigDir, DBFile)
}

// Load reads the config file at path (Path() when empty), loads .env from
// the working directory, and applies environment overrides. A missing file
// yields the defaults, not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(path, data, cfg); err != nil {
				return nil, err
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.CacheDB == "" {
		cfg.CacheDB = DefaultCacheDB()
	}
	cfg.CacheDB = ExpandTilde(cfg.CacheDB)
	cfg.Server = strings.TrimRight(cfg.Server, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvServer); v != "" {
		c.Server = v
	}
	if v := os.Getenv(EnvCacheDB); v != "" {
		c.CacheDB = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{EnvWidth, &c.Width},
		{EnvHeight, &c.Height},
		{EnvRateLimit, &c.RateLimit},
	}
	for _, f := range floats {
		v := os.Getenv(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, f.name, v)
		}
		*f.dst = n
	}

	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidConfig, EnvTimeout, v)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: server must be an http(s) URL, got %q", ErrInvalidConfig, c.Server)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: viewport must be positive, got %gx%g", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must not be negative", ErrInvalidConfig)
	}
	if c.Layout != "force" && c.Layout != "circular" {
		return fmt.Errorf("%w: layout must be force or circular, got %q", ErrInvalidConfig, c.Layout)
	}
	if c.KeepSnapshots < 0 {
		return fmt.Errorf("%w: keep_snapshots must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Save writes the configuration to path, as TOML if the path ends in
// .toml and YAML otherwise.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	if isTOML(path) {
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		enc.Close()
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ExpandTilde expands a leading ~ to the user's home directory.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
