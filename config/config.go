// Package config loads the server configuration from YAML, then applies
// environment overrides. Flags in the binaries take precedence over both.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// PathEnv names the variable that points at the config file.
const PathEnv = "GREEDYSNEK_CONFIG"

const DefaultPath = "config/greedysnek.yaml"

type Config struct {
	Listen string `yaml:"listen"`
	// Seed for the move selector's random source; 0 picks one from the clock.
	Seed int64 `yaml:"seed"`

	Log        Log        `yaml:"log"`
	Appearance Appearance `yaml:"appearance"`
	Record     Record     `yaml:"record"`
	Timeouts   Timeouts   `yaml:"timeouts"`
}

type Log struct {
	Format    string `yaml:"format"` // pretty, json or text
	Level     string `yaml:"level"`
	AddSource bool   `yaml:"add_source"`
}

// Appearance is what the info endpoint reports to the host.
type Appearance struct {
	Author  string `yaml:"author"`
	Color   string `yaml:"color"`
	Head    string `yaml:"head"`
	Tail    string `yaml:"tail"`
	Version string `yaml:"version"`
}

// Record controls the parquet move log.
type Record struct {
	Enabled    bool          `yaml:"enabled"`
	OutDir     string        `yaml:"out_dir"`
	LogPath    string        `yaml:"log_path"`
	FlushGames int           `yaml:"flush_games"`
	FlushEvery time.Duration `yaml:"flush_every"`

	// IdleTimeout ends games whose /end never arrived; 0 keeps them open.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

type Timeouts struct {
	ReadHeader time.Duration `yaml:"read_header"`
	Read       time.Duration `yaml:"read"`
	Write      time.Duration `yaml:"write"`
}

func Default() Config {
	return Config{
		Listen: ":8080",
		Log: Log{
			Format: "text",
			Level:  "info",
		},
		Appearance: Appearance{
			Author:  "brensch",
			Color:   "#888888",
			Head:    "default",
			Tail:    "default",
			Version: "1.0.0",
		},
		Record: Record{
			Enabled:     false,
			OutDir:      "data/moves",
			LogPath:     "data/moves/written_games.log",
			FlushGames:  100,
			FlushEvery:  10 * time.Minute,
			IdleTimeout: 30 * time.Minute,
		},
		Timeouts: Timeouts{
			ReadHeader: 5 * time.Second,
			Read:       5 * time.Second,
			Write:      5 * time.Second,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the process environment.
func (c *Config) ApplyEnv() {
	c.Listen = GetEnvOrDefault("LISTEN", c.Listen)
	c.Log.Level = GetEnvOrDefault("LOG_LEVEL", c.Log.Level)
	c.Log.Format = GetEnvOrDefault("LOG_FORMAT", c.Log.Format)
	c.Seed = int64(GetEnvIntOrDefault("SEED", int(c.Seed)))
	c.Record.Enabled = GetEnvBoolOrDefault("RECORD", c.Record.Enabled)
	c.Record.OutDir = GetEnvOrDefault("RECORD_DIR", c.Record.OutDir)
	c.Record.FlushEvery = GetEnvDurationOrDefault("RECORD_FLUSH_EVERY", c.Record.FlushEvery)
}

func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Record.Enabled {
		if c.Record.OutDir == "" {
			return fmt.Errorf("record.out_dir is required when recording")
		}
		if c.Record.FlushGames <= 0 {
			return fmt.Errorf("record.flush_games must be positive, got %d", c.Record.FlushGames)
		}
	}
	return nil
}

func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func GetEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func GetEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func GetEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
