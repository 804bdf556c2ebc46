// Package config loads process settings from an optional YAML file.
package config

import (
    "errors"
    "fmt"
    "os"
    "time"

    "github.com/rs/zerolog"
    "gopkg.in/yaml.v3"

    "github.com/jaminalder/tictactoe-solver/internal/search"
)

type Config struct {
    Addr   string       `yaml:"addr"`
    Log    LogConfig    `yaml:"log"`
    Search SearchConfig `yaml:"search"`
    Web    WebConfig    `yaml:"web"`
}

type LogConfig struct {
    Level  string `yaml:"level"`
    Format string `yaml:"format"` // console or json
}

type SearchConfig struct {
    Algorithm string `yaml:"algorithm"`
}

type WebConfig struct {
    Heartbeat time.Duration `yaml:"heartbeat"`
}

// Default returns the settings used when no file is given.
func Default() Config {
    return Config{
        Addr:   ":8080",
        Log:    LogConfig{Level: "info", Format: "console"},
        Search: SearchConfig{Algorithm: search.NegamaxAlphaBeta.String()},
        Web:    WebConfig{Heartbeat: 15 * time.Second},
    }
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
    cfg := Default()
    if path == "" {
        return cfg, cfg.Validate()
    }
    data, err := os.ReadFile(path)
    if err != nil {
        return cfg, fmt.Errorf("read config: %w", err)
    }
    if err := yaml.Unmarshal(data, &cfg); err != nil {
        return cfg, fmt.Errorf("parse config %s: %w", path, err)
    }
    return cfg, cfg.Validate()
}

// Validate checks every field that is parsed later.
func (c Config) Validate() error {
    if c.Addr == "" {
        return errors.New("config: addr is empty")
    }
    if _, err := c.Level(); err != nil {
        return err
    }
    if c.Log.Format != "console" && c.Log.Format != "json" {
        return fmt.Errorf("config: unknown log format %q", c.Log.Format)
    }
    if _, err := c.Algorithm(); err != nil {
        return fmt.Errorf("config: %w", err)
    }
    if c.Web.Heartbeat <= 0 {
        return fmt.Errorf("config: heartbeat must be positive, got %s", c.Web.Heartbeat)
    }
    return nil
}

// Level returns the parsed log level.
func (c Config) Level() (zerolog.Level, error) {
    lvl, err := zerolog.ParseLevel(c.Log.Level)
    if err != nil {
        return zerolog.NoLevel, fmt.Errorf("config: %w", err)
    }
    return lvl, nil
}

// Algorithm returns the parsed search algorithm.
func (c Config) Algorithm() (search.Algorithm, error) {
    return search.ParseAlgorithm(c.Search.Algorithm)
}
