package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the root configuration for the tierdb daemon.
type Config struct {
	Logger     LoggerConfig     `yaml:"logger"`
	Server     ServerConfig     `yaml:"http-server"`
	Compaction CompactionConfig `yaml:"compaction"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// CompactionConfig controls the size-tiered strategy. Options carries
// the free-form string map handed to the strategy's option validator;
// keys the strategy does not recognize are reported, not rejected.
type CompactionConfig struct {
	MinThreshold    int               `yaml:"min_threshold"`
	MaxThreshold    int               `yaml:"max_threshold"`
	IntervalSeconds int               `yaml:"interval_seconds"`
	Options         map[string]string `yaml:"options"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "INFO",
			JSON:  false,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Compaction: CompactionConfig{
			MinThreshold:    4,
			MaxThreshold:    32,
			IntervalSeconds: 10,
		},
	}
}

// Load reads a YAML config from path. A missing file is not an error;
// the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}
