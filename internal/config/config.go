// Package config reads the global ~/.chatsync/config.toml and the per-profile
// .env overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment keys that override the file settings.
const (
	EnvBackendURL  = "CHATSYNC_BACKEND_URL"
	EnvRealtimeURL = "CHATSYNC_REALTIME_URL"
	EnvToken       = "CHATSYNC_TOKEN"
)

// Config represents ~/.chatsync/config.toml.
type Config struct {
	DefaultProfile  string `toml:"default_profile"`
	BackendURL      string `toml:"backend_url"`
	RealtimeURL     string `toml:"realtime_url"`
	Token           string `toml:"token"`
	UserID          string `toml:"user_id,omitempty"`
	UserName        string `toml:"user_name,omitempty"`
	UserAvatar      string `toml:"user_avatar,omitempty"`
	InitialPageSize int    `toml:"initial_page_size,omitempty"`
	PageSize        int    `toml:"page_size,omitempty"`
	LogLevel        string `toml:"log_level,omitempty"`
}

// Load reads config from the given path. Returns nil and an error wrapping
// fs.ErrNotExist if the file is missing.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrEmpty is Load, except that a missing file yields an empty config.
func LoadOrEmpty(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// ApplyEnv overrides connection settings from the dotenv file at path and
// then from the process environment, which wins. A missing file is fine.
func (c *Config) ApplyEnv(path string) error {
	vars, err := godotenv.Read(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return vars[key]
	}
	for key, field := range map[string]*string{
		EnvBackendURL:  &c.BackendURL,
		EnvRealtimeURL: &c.RealtimeURL,
		EnvToken:       &c.Token,
	} {
		if v := lookup(key); v != "" {
			*field = v
		}
	}
	return nil
}

// Validate checks the settings the daemon needs to run.
func (c *Config) Validate() error {
	if err := checkURL("backend_url", c.BackendURL, "http", "https"); err != nil {
		return err
	}
	if err := checkURL("realtime_url", c.RealtimeURL, "ws", "wss"); err != nil {
		return err
	}
	if c.InitialPageSize < 0 || c.PageSize < 0 {
		return errors.New("page sizes must not be negative")
	}
	return nil
}

func checkURL(key, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is not set", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s %q: want a %v URL", key, raw, schemes)
}
