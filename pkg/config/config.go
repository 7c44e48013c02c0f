package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr  = "127.0.0.1:8000"
	DefaultPath  = "trees.xlsx"
	DefaultSheet = "trees"
	DefaultLimit = 45709
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // HTTP listen address (e.g. 127.0.0.1:8000)
}

type DataConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // xlsx, csv or sqlite; inferred from Path when empty
	Sheet  string `yaml:"sheet"`
	Limit  int    `yaml:"limit"` // rows to read, <= 0 for no cap
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: DefaultAddr,
		},
		Data: DataConfig{
			Path:  DefaultPath,
			Sheet: DefaultSheet,
			Limit: DefaultLimit,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configPath over the defaults. With an empty path it looks for
// configs/arbor.yaml and arbor.yaml, falling back to the defaults if neither
// exists.
func Load(configPath string) (*Config, error) {
	cfg := defaults()

	if configPath == "" {
		for _, p := range []string{"configs/arbor.yaml", "arbor.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, fmt.Errorf("parse %s: %w", p, err)
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		applyDefaults(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", configPath, err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.Data.Path == "" {
		cfg.Data.Path = DefaultPath
	}
	if cfg.Data.Sheet == "" {
		cfg.Data.Sheet = DefaultSheet
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// SlogLevel maps the configured level name, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.Level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
