package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/feedloop/feed"
	"github.com/hazyhaar/feedloop/generation"
)

// Config is the top-level feedloop configuration.
type Config struct {
	Feed       FeedConfig        `yaml:"feed"`
	Browser    BrowserConfig     `yaml:"browser"`
	Engage     EngageConfig      `yaml:"engage"`
	Generation generation.Config `yaml:"generation"`
	Settings   SettingsConfig    `yaml:"settings"`
	Server     ServerConfig      `yaml:"server"`
}

// FeedConfig names the target page and its affordance selectors.
type FeedConfig struct {
	URL       string         `yaml:"url"`
	Selectors feed.Selectors `yaml:"selectors"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`
	Headful          bool     `yaml:"headful"`
	ResourceBlocking []string `yaml:"resource_blocking"`
}

// EngageConfig tunes the automation loop.
type EngageConfig struct {
	Mode               string        `yaml:"mode"` // fast | slow
	CommentProbability float64       `yaml:"comment_probability"`
	ScrollFraction     float64       `yaml:"scroll_fraction"`
	SettleDelay        time.Duration `yaml:"settle_delay"`
}

// SettingsConfig locates the settings database.
type SettingsConfig struct {
	DB string `yaml:"db"`
}

// ServerConfig controls the metrics/health HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

func (c *Config) applyDefaults() {
	c.Feed.Selectors.ApplyDefaults()
	if len(c.Browser.ResourceBlocking) == 0 {
		c.Browser.ResourceBlocking = []string{"images", "fonts", "media"}
	}
	if c.Engage.Mode == "" {
		c.Engage.Mode = "slow"
	}
	if c.Settings.DB == "" {
		c.Settings.DB = "data/feedloop.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8086"
	}
	// API key from the environment wins over the file; keys do not
	// belong in YAML checked into a repo.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Generation.APIKey = key
	}
}

func loadConfigFile(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}
