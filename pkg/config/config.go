// Package config handles configuration for macrotool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/logger"
)

// Config represents the workspace configuration (config.yaml).
type Config struct {
	Player PlayerConfig      `yaml:"player"`
	Log    logger.Config     `yaml:"log"`
	Env    map[string]string `yaml:"env"` // Initial macro variables
}

// PlayerConfig tunes playback.
type PlayerConfig struct {
	MaxDepth            int     `yaml:"maxDepth"`            // EmbedMacroFile nesting limit
	FindPollMs          int     `yaml:"findPollMs"`          // Re-attempt interval of FindImage/FindTextOcr
	PixelPollMs         int     `yaml:"pixelPollMs"`         // WaitForPixelColor interval
	ChangePollMs        int     `yaml:"changePollMs"`        // WaitForScreenChange interval
	OCRLanguage         string  `yaml:"ocrLanguage"`         // Used when a step names none
	OCRScale            float64 `yaml:"ocrScale"`            // Upscale factor before OCR, <= 1 disables
	ExpressionTimeoutMs int     `yaml:"expressionTimeoutMs"` // Limit for ${...} evaluation
}

// Defaults
const (
	DefaultMaxDepth    = 5
	DefaultOCRLanguage = "eng"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Player: PlayerConfig{
			MaxDepth:            DefaultMaxDepth,
			FindPollMs:          100,
			PixelPollMs:         50,
			ChangePollMs:        100,
			OCRLanguage:         DefaultOCRLanguage,
			OCRScale:            1,
			ExpressionTimeoutMs: 2000,
		},
		Log: logger.Config{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Env: map[string]string{},
	}
}

// Load loads configuration from a file, on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Env == nil {
		cfg.Env = map[string]string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	// Try config.yaml first
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// Try config.yml
	configPath = filepath.Join(dir, "config.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found
	return Default(), nil
}

// Validate rejects values playback cannot work with.
func (c *Config) Validate() error {
	p := c.Player
	switch {
	case p.MaxDepth < 0:
		return fmt.Errorf("player.maxDepth must be >= 0, got %d", p.MaxDepth)
	case p.FindPollMs <= 0, p.PixelPollMs <= 0, p.ChangePollMs <= 0:
		return fmt.Errorf("player poll intervals must be > 0")
	case p.OCRScale > 4:
		return fmt.Errorf("player.ocrScale must be <= 4, got %g", p.OCRScale)
	}
	return nil
}

// FindPoll returns the detection re-attempt interval.
func (p PlayerConfig) FindPoll() time.Duration {
	return time.Duration(p.FindPollMs) * time.Millisecond
}

// PixelPoll returns the pixel wait interval.
func (p PlayerConfig) PixelPoll() time.Duration {
	return time.Duration(p.PixelPollMs) * time.Millisecond
}

// ChangePoll returns the screen-change interval.
func (p PlayerConfig) ChangePoll() time.Duration {
	return time.Duration(p.ChangePollMs) * time.Millisecond
}

// ExpressionTimeout returns the ${...} evaluation limit.
func (p PlayerConfig) ExpressionTimeout() time.Duration {
	return time.Duration(p.ExpressionTimeoutMs) * time.Millisecond
}
