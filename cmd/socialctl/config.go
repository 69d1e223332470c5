package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ctlConfig is the on-disk state for socialctl. The bearer token is written
// back after login/register so later invocations stay signed in.
type ctlConfig struct {
	// BaseURL is the API endpoint, e.g. "http://localhost:8080".
	BaseURL string `yaml:"base_url"`
	// Token is the bearer token from the last login, empty when signed out.
	Token string `yaml:"token,omitempty"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".socialctl.yaml"
	}
	return filepath.Join(home, ".socialctl.yaml")
}

// loadConfig reads the config file, creating a default one on first run.
func loadConfig(path string) (*ctlConfig, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := &ctlConfig{BaseURL: "http://localhost:8080"}
		if err := saveConfig(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg ctlConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	return &cfg, nil
}

// saveConfig writes the config with 0600 permissions since it holds a token.
func saveConfig(path string, cfg *ctlConfig) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, raw, 0o600)
}
