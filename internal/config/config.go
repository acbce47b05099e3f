package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models tasktrail.yml.
type Config struct {
	History struct {
		Capacity    int `yaml:"capacity"`
		LogCapacity int `yaml:"log_capacity"`
	} `yaml:"history"`
	Queries struct {
		DueSoonDays     int `yaml:"due_soon_days"`
		HighPriorityMin int `yaml:"high_priority_min"`
	} `yaml:"queries"`
	Defaults struct {
		Category string `yaml:"category"`
		Priority int    `yaml:"priority"`
	} `yaml:"defaults"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with tt config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.History.Capacity < 1 {
		return fmt.Errorf("config.history.capacity must be at least 1")
	}
	if c.History.LogCapacity < 1 {
		return fmt.Errorf("config.history.log_capacity must be at least 1")
	}
	if c.Queries.DueSoonDays < 0 {
		return fmt.Errorf("config.queries.due_soon_days must not be negative")
	}
	if c.Defaults.Category == "" {
		return fmt.Errorf("config.defaults.category is required")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "tasktrail.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the built-in default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `history:
  capacity: 50
  log_capacity: 200

queries:
  due_soon_days: 7
  high_priority_min: 3

defaults:
  category: uncategorized
  priority: 3
`
