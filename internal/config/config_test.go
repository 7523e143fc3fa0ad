package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points XDG paths at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	for _, name := range []string{EnvServer, EnvWidth, EnvHeight, EnvTimeout, EnvCacheDB, EnvRateLimit, EnvListen} {
		t.Setenv(name, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestPath(t *testing.T) {
	dir := isolate(t)
	configDir := filepath.Join(dir, "config", "citegraph")

	if got, want := Path(), filepath.Join(configDir, ConfigFile); got != want {
		t.Errorf("Path() with no file = %q, want %q", got, want)
	}

	writeFile(t, filepath.Join(configDir, TOMLConfigFile), "")
	if got, want := Path(), filepath.Join(configDir, TOMLConfigFile); got != want {
		t.Errorf("Path() with toml only = %q, want %q", got, want)
	}

	writeFile(t, filepath.Join(configDir, ConfigFile), "")
	if got, want := Path(), filepath.Join(configDir, ConfigFile); got != want {
		t.Errorf("Path() with both = %q, want %q", got, want)
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := Default()
	if cfg.Server != def.Server || cfg.Width != 800 || cfg.Height != 550 || cfg.Timeout != 30*time.Second {
		t.Errorf("Load() = %+v", cfg)
	}
	if want := filepath.Join(dir, "cache", "citegraph", DBFile); cfg.CacheDB != want {
		t.Errorf("CacheDB = %q, want %q", cfg.CacheDB, want)
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config", "citegraph", ConfigFile)
	writeFile(t, path, `server: https://papers.example.org/
width: 1024
height: 768
timeout: 5s
layout: circular
show_labels: false
`)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server != "https://papers.example.org" {
		t.Errorf("Server = %q, trailing slash should be trimmed", cfg.Server)
	}
	if cfg.Width != 1024 || cfg.Height != 768 || cfg.Timeout != 5*time.Second {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.Layout != "circular" || cfg.ShowLabels {
		t.Errorf("Layout = %q, ShowLabels = %v", cfg.Layout, cfg.ShowLabels)
	}
	if cfg.RateLimit != 20 {
		t.Errorf("RateLimit = %v, unset keys should keep defaults", cfg.RateLimit)
	}
}

func TestLoad_TOML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	writeFile(t, path, `server = "http://10.0.0.5:5000"
rate_limit = 2.5
keep_snapshots = 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server != "http://10.0.0.5:5000" || cfg.RateLimit != 2.5 || cfg.KeepSnapshots != 3 {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config", "citegraph", ConfigFile), "server: http://from-file:5000\n")

	t.Setenv(EnvServer, "http://from-env:5000")
	t.Setenv(EnvWidth, "640")
	t.Setenv(EnvTimeout, "1m")
	t.Setenv(EnvCacheDB, "/tmp/x.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server != "http://from-env:5000" || cfg.Width != 640 || cfg.Timeout != time.Minute || cfg.CacheDB != "/tmp/x.db" {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		invalid bool
	}{
		{name: "bad yaml", file: "server: [unclosed\n"},
		{name: "bad width env", env: map[string]string{EnvWidth: "wide"}, invalid: true},
		{name: "bad timeout env", env: map[string]string{EnvTimeout: "soon"}, invalid: true},
		{name: "non-http server", file: "server: ftp://example.org\n", invalid: true},
		{name: "zero height", file: "height: 0\n", invalid: true},
		{name: "unknown layout", file: "layout: radial\n", invalid: true},
		{name: "negative rate", file: "rate_limit: -1\n", invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			if tt.file != "" {
				writeFile(t, filepath.Join(dir, "config", "citegraph", ConfigFile), tt.file)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if got := errors.Is(err, ErrInvalidConfig); got != tt.invalid {
				t.Errorf("errors.Is(err, ErrInvalidConfig) = %v, want %v (err: %v)", got, tt.invalid, err)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.yml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			dir := isolate(t)
			path := filepath.Join(dir, "out", name)

			cfg := Default()
			cfg.Server = "http://saved:5000"
			cfg.Timeout = 12 * time.Second
			cfg.CacheDB = "/var/cache/cg.db"
			if err := cfg.Save(path); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if *got != *cfg {
				t.Errorf("round trip = %+v, want %+v", got, cfg)
			}
		})
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		in, want string
	}{
		{"~/cache/cg.db", filepath.Join(home, "cache/cg.db")},
		{"~", home},
		{"/abs/path", "/abs/path"},
		{"~other/x", "~other/x"},
	}
	for _, tt := range tests {
		if got := ExpandTilde(tt.in); got != tt.want {
			t.Errorf("ExpandTilde(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
